package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

// Store keeps the bot settings (key/value) and the TTS permission rows.
type Store struct {
	db *sql.DB
}

var (
	_ domain.PermissionRepository = (*Store)(nil)
	_ domain.SettingsRepository   = (*Store)(nil)
)

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite: empty db path")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: creating dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const settingsTable = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at TIMESTAMP NOT NULL
);`

	if _, err := db.Exec(settingsTable); err != nil {
		return fmt.Errorf("sqlite: migrate settings: %w", err)
	}

	const permissionsTable = `
CREATE TABLE IF NOT EXISTS tts_user_permissions (
	user_id TEXT PRIMARY KEY,
	username TEXT,
	allow_tts INTEGER NOT NULL DEFAULT 0,
	assigned_voice_id TEXT,
	assigned_engine TEXT,
	language_preference TEXT,
	volume_gain REAL NOT NULL DEFAULT 1.0,
	is_blacklisted INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tts_user_permissions_username ON tts_user_permissions(username);`

	if _, err := db.Exec(permissionsTable); err != nil {
		return fmt.Errorf("sqlite: migrate tts_user_permissions: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) GetUserPermission(ctx context.Context, userID string) (*domain.UserPermission, error) {
	const query = `
SELECT user_id, username, allow_tts, assigned_voice_id, assigned_engine, language_preference,
	volume_gain, is_blacklisted, created_at, updated_at
FROM tts_user_permissions
WHERE user_id = ?
LIMIT 1;
`

	perm, err := scanPermission(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: get user permission: %w", err)
	}
	return perm, nil
}

func (s *Store) SaveUserPermission(ctx context.Context, perm *domain.UserPermission) error {
	if perm == nil || strings.TrimSpace(perm.UserID) == "" {
		return fmt.Errorf("sqlite: invalid user permission")
	}

	now := time.Now().UTC()
	if perm.CreatedAt.IsZero() {
		perm.CreatedAt = now
	}
	if perm.UpdatedAt.IsZero() {
		perm.UpdatedAt = now
	}

	const stmt = `
INSERT INTO tts_user_permissions (user_id, username, allow_tts, assigned_voice_id, assigned_engine,
	language_preference, volume_gain, is_blacklisted, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	username=excluded.username,
	allow_tts=excluded.allow_tts,
	assigned_voice_id=excluded.assigned_voice_id,
	assigned_engine=excluded.assigned_engine,
	language_preference=excluded.language_preference,
	volume_gain=excluded.volume_gain,
	is_blacklisted=excluded.is_blacklisted,
	updated_at=excluded.updated_at;
`

	_, err := s.db.ExecContext(ctx, stmt,
		perm.UserID,
		perm.Username,
		perm.AllowTTS,
		nullString(perm.AssignedVoiceID),
		nullString(perm.AssignedEngineID),
		nullString(perm.LanguagePreference),
		perm.VolumeGain,
		perm.IsBlacklisted,
		perm.CreatedAt.UTC(),
		perm.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save user permission: %w", err)
	}
	return nil
}

func (s *Store) DeleteUserPermission(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tts_user_permissions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: delete user permission: %w", err)
	}
	return nil
}

func (s *Store) ListUserPermissions(ctx context.Context) ([]*domain.UserPermission, error) {
	const query = `
SELECT user_id, username, allow_tts, assigned_voice_id, assigned_engine, language_preference,
	volume_gain, is_blacklisted, created_at, updated_at
FROM tts_user_permissions
ORDER BY username COLLATE NOCASE ASC;
`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list user permissions: %w", err)
	}
	defer rows.Close()

	var out []*domain.UserPermission
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan user permission: %w", err)
		}
		out = append(out, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list user permissions rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermission(row rowScanner) (*domain.UserPermission, error) {
	var (
		perm                          domain.UserPermission
		username, voice, engine, lang sql.NullString
		createdAt, updatedAt          sql.NullTime
	)
	if err := row.Scan(
		&perm.UserID,
		&username,
		&perm.AllowTTS,
		&voice,
		&engine,
		&lang,
		&perm.VolumeGain,
		&perm.IsBlacklisted,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	perm.Username = username.String
	perm.AssignedVoiceID = voice.String
	perm.AssignedEngineID = engine.String
	perm.LanguagePreference = lang.String
	if createdAt.Valid {
		perm.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		perm.UpdatedAt = updatedAt.Time
	}
	return &perm, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("sqlite: empty setting key")
	}

	now := time.Now().UTC()
	const stmt = `
INSERT INTO settings (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value=excluded.value,
	updated_at=excluded.updated_at;
`

	if _, err := s.db.ExecContext(ctx, stmt, key, value, now); err != nil {
		return fmt.Errorf("sqlite: set setting: %w", err)
	}

	return nil
}

// GetSetting returns "" without error when the key is not stored.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("sqlite: empty setting key")
	}

	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ? LIMIT 1;`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("sqlite: get setting: %w", err)
	}
	return value.String, nil
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// Package permission decides who may trigger speech.
package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

type Reason string

const (
	ReasonBlacklisted           Reason = "blacklisted"
	ReasonVoiceAssigned         Reason = "voice_assigned"
	ReasonWhitelisted           Reason = "whitelisted"
	ReasonTeamLevel             Reason = "team_level"
	ReasonTeamLevelInsufficient Reason = "team_level_insufficient"
)

const (
	DefaultCacheTTL  = 60 * time.Second
	defaultCacheSize = 1000
)

var ErrUserNotFound = errors.New("permission: user not found")

type Result struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

type Config struct {
	Repo      domain.PermissionRepository
	CacheTTL  time.Duration
	CacheSize int
	Logger    *log.Logger
}

// Manager evaluates the permission ladder. Stored rows are cached per user for
// CacheTTL; every mutation drops that user's entry.
type Manager struct {
	// writeMu serialises read-modify-write cycles on stored rows.
	writeMu sync.Mutex

	repo   domain.PermissionRepository
	cache  *expirable.LRU[string, cachedRow]
	logger *log.Logger
	now    func() time.Time
}

// cachedRow distinguishes "no row" from "not cached".
type cachedRow struct {
	perm *domain.UserPermission
}

func NewManager(cfg Config) *Manager {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		repo:   cfg.Repo,
		cache:  expirable.NewLRU[string, cachedRow](cfg.CacheSize, nil, cfg.CacheTTL),
		logger: logger.WithPrefix("permission"),
		now:    time.Now,
	}
}

// CheckPermission applies, in order: blacklist, assigned voice, whitelist,
// team level.
func (m *Manager) CheckPermission(ctx context.Context, userID, username string, teamLevel, minTeamLevel int) (Result, error) {
	perm, err := m.lookup(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	res := Evaluate(perm, teamLevel, minTeamLevel)
	m.logger.Debug("checked", "user", username, "user_id", userID, "allowed", res.Allowed, "reason", res.Reason)
	return res, nil
}

// Evaluate is the pure permission ladder. perm may be nil.
func Evaluate(perm *domain.UserPermission, teamLevel, minTeamLevel int) Result {
	if perm != nil {
		if perm.IsBlacklisted {
			return Result{Allowed: false, Reason: ReasonBlacklisted}
		}
		if perm.AssignedVoiceID != "" {
			return Result{Allowed: true, Reason: ReasonVoiceAssigned}
		}
		if perm.AllowTTS {
			return Result{Allowed: true, Reason: ReasonWhitelisted}
		}
	}
	if teamLevel >= minTeamLevel {
		return Result{Allowed: true, Reason: ReasonTeamLevel}
	}
	return Result{Allowed: false, Reason: ReasonTeamLevelInsufficient}
}

// Get returns the stored row for userID or (nil, nil).
func (m *Manager) Get(ctx context.Context, userID string) (*domain.UserPermission, error) {
	return m.lookup(ctx, userID)
}

func (m *Manager) List(ctx context.Context) ([]*domain.UserPermission, error) {
	if m.repo == nil {
		return nil, nil
	}
	list, err := m.repo.ListUserPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("permission: list: %w", err)
	}
	return list, nil
}

func (m *Manager) Allow(ctx context.Context, userID, username string) error {
	return m.update(ctx, userID, username, func(p *domain.UserPermission) {
		p.AllowTTS = true
	})
}

// Deny clears the whitelist flag. An assigned voice still grants access.
func (m *Manager) Deny(ctx context.Context, userID, username string) error {
	return m.update(ctx, userID, username, func(p *domain.UserPermission) {
		p.AllowTTS = false
	})
}

func (m *Manager) Blacklist(ctx context.Context, userID, username string) error {
	return m.update(ctx, userID, username, func(p *domain.UserPermission) {
		p.IsBlacklisted = true
	})
}

func (m *Manager) Unblacklist(ctx context.Context, userID, username string) error {
	return m.update(ctx, userID, username, func(p *domain.UserPermission) {
		p.IsBlacklisted = false
	})
}

func (m *Manager) AssignVoice(ctx context.Context, userID, username, voiceID, engineID string) error {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return fmt.Errorf("permission: empty voice id")
	}
	return m.update(ctx, userID, username, func(p *domain.UserPermission) {
		p.AssignedVoiceID = voiceID
		p.AssignedEngineID = strings.TrimSpace(engineID)
	})
}

func (m *Manager) RemoveVoice(ctx context.Context, userID, username string) error {
	return m.update(ctx, userID, username, func(p *domain.UserPermission) {
		p.AssignedVoiceID = ""
		p.AssignedEngineID = ""
	})
}

func (m *Manager) SetLanguagePreference(ctx context.Context, userID, username, lang string) error {
	return m.update(ctx, userID, username, func(p *domain.UserPermission) {
		p.LanguagePreference = strings.ToLower(strings.TrimSpace(lang))
	})
}

func (m *Manager) SetVolumeGain(ctx context.Context, userID, username string, gain float64) error {
	if gain < 0 || gain > 2 {
		return fmt.Errorf("permission: volume gain %.2f out of range [0,2]", gain)
	}
	return m.update(ctx, userID, username, func(p *domain.UserPermission) {
		p.VolumeGain = gain
	})
}

func (m *Manager) DeleteUser(ctx context.Context, userID string) error {
	if m.repo == nil {
		return fmt.Errorf("permission: no repository")
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	defer m.Invalidate(userID)
	if err := m.repo.DeleteUserPermission(ctx, userID); err != nil {
		return fmt.Errorf("permission: delete %s: %w", userID, err)
	}
	return nil
}

func (m *Manager) Invalidate(userID string) {
	m.cache.Remove(userID)
}

func (m *Manager) lookup(ctx context.Context, userID string) (*domain.UserPermission, error) {
	if entry, ok := m.cache.Get(userID); ok {
		return entry.perm, nil
	}
	if m.repo == nil || userID == "" {
		return nil, nil
	}
	perm, err := m.repo.GetUserPermission(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("permission: get %s: %w", userID, err)
	}
	m.cache.Add(userID, cachedRow{perm: perm})
	return perm, nil
}

func (m *Manager) update(ctx context.Context, userID, username string, mutate func(*domain.UserPermission)) error {
	if m.repo == nil {
		return fmt.Errorf("permission: no repository")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("permission: empty user id")
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	defer m.Invalidate(userID)

	perm, err := m.repo.GetUserPermission(ctx, userID)
	if err != nil {
		return fmt.Errorf("permission: get %s: %w", userID, err)
	}
	now := m.now().UTC()
	if perm == nil {
		perm = &domain.UserPermission{
			UserID:     userID,
			VolumeGain: 1,
			CreatedAt:  now,
		}
	}
	if username != "" {
		perm.Username = username
	}
	mutate(perm)
	perm.UpdatedAt = now

	if err := m.repo.SaveUserPermission(ctx, perm); err != nil {
		return fmt.Errorf("permission: save %s: %w", userID, err)
	}
	m.logger.Info("updated", "user", perm.Username, "user_id", userID,
		"allow", perm.AllowTTS, "blacklisted", perm.IsBlacklisted, "voice", perm.AssignedVoiceID)
	return nil
}

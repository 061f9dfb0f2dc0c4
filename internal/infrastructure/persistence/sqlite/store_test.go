package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "data", "bot.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if v, err := store.GetSetting(ctx, "tts_config"); err != nil || v != "" {
		t.Fatalf("missing key = %q, %v", v, err)
	}
	if err := store.SetSetting(ctx, "tts_config", `{"volume":80}`); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := store.SetSetting(ctx, "tts_config", `{"volume":60}`); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	if v, _ := store.GetSetting(ctx, "tts_config"); v != `{"volume":60}` {
		t.Fatalf("value = %q", v)
	}
	if err := store.SetSetting(ctx, " ", "x"); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestUserPermissionsCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if perm, err := store.GetUserPermission(ctx, "42"); err != nil || perm != nil {
		t.Fatalf("missing user = %+v, %v", perm, err)
	}

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	perm := &domain.UserPermission{
		UserID:           "42",
		Username:         "zoe",
		AllowTTS:         true,
		AssignedVoiceID:  "de_001",
		AssignedEngineID: "tiktok",
		VolumeGain:       0.8,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
	if err := store.SaveUserPermission(ctx, perm); err != nil {
		t.Fatalf("SaveUserPermission: %v", err)
	}

	perm.IsBlacklisted = true
	perm.AssignedVoiceID = ""
	perm.LanguagePreference = "de"
	perm.UpdatedAt = created.Add(time.Hour)
	if err := store.SaveUserPermission(ctx, perm); err != nil {
		t.Fatalf("SaveUserPermission update: %v", err)
	}

	got, err := store.GetUserPermission(ctx, "42")
	if err != nil || got == nil {
		t.Fatalf("GetUserPermission: %+v, %v", got, err)
	}
	if !got.IsBlacklisted || !got.AllowTTS || got.AssignedVoiceID != "" || got.AssignedEngineID != "tiktok" {
		t.Fatalf("row = %+v", got)
	}
	if got.LanguagePreference != "de" || got.VolumeGain != 0.8 || got.Username != "zoe" {
		t.Fatalf("row = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at changed to %v", got.CreatedAt)
	}

	if err := store.SaveUserPermission(ctx, &domain.UserPermission{UserID: "7", Username: "Adam", VolumeGain: 1}); err != nil {
		t.Fatalf("SaveUserPermission: %v", err)
	}
	list, err := store.ListUserPermissions(ctx)
	if err != nil || len(list) != 2 || list[0].Username != "Adam" {
		t.Fatalf("list = %+v, %v", list, err)
	}

	if err := store.DeleteUserPermission(ctx, "42"); err != nil {
		t.Fatalf("DeleteUserPermission: %v", err)
	}
	if perm, _ := store.GetUserPermission(ctx, "42"); perm != nil {
		t.Fatalf("row should be deleted")
	}
}

package tts

import (
	"context"
	"fmt"
	"strings"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

type UserActionKind string

const (
	UserAllow         UserActionKind = "allow"
	UserDeny          UserActionKind = "deny"
	UserBlacklist     UserActionKind = "blacklist"
	UserUnblacklist   UserActionKind = "unblacklist"
	UserAssignVoice   UserActionKind = "assign_voice"
	UserRemoveVoice   UserActionKind = "remove_voice"
	UserSetLanguage   UserActionKind = "set_language"
	UserSetVolumeGain UserActionKind = "set_volume_gain"
	UserDelete        UserActionKind = "delete"
)

type UserAction struct {
	Action     UserActionKind `json:"action"`
	UserID     string         `json:"user_id"`
	Username   string         `json:"username"`
	VoiceID    string         `json:"voice_id,omitempty"`
	EngineID   string         `json:"engine_id,omitempty"`
	Language   string         `json:"language,omitempty"`
	VolumeGain float64        `json:"volume_gain,omitempty"`
}

// ManageUser applies a permission change and returns the resulting row (nil
// after delete).
func (s *Service) ManageUser(ctx context.Context, a UserAction) (*domain.UserPermission, error) {
	a.UserID = strings.TrimSpace(a.UserID)
	if a.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrValidation)
	}
	p := s.permissions

	var err error
	switch a.Action {
	case UserAllow:
		err = p.Allow(ctx, a.UserID, a.Username)
	case UserDeny:
		err = p.Deny(ctx, a.UserID, a.Username)
	case UserBlacklist:
		err = p.Blacklist(ctx, a.UserID, a.Username)
	case UserUnblacklist:
		err = p.Unblacklist(ctx, a.UserID, a.Username)
	case UserAssignVoice:
		voice, engineID, ok := s.FindVoice(a.VoiceID, a.EngineID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown voice %q", ErrValidation, a.VoiceID)
		}
		err = p.AssignVoice(ctx, a.UserID, a.Username, voice.ID, engineID)
	case UserRemoveVoice:
		err = p.RemoveVoice(ctx, a.UserID, a.Username)
	case UserSetLanguage:
		err = p.SetLanguagePreference(ctx, a.UserID, a.Username, a.Language)
	case UserSetVolumeGain:
		err = p.SetVolumeGain(ctx, a.UserID, a.Username, a.VolumeGain)
	case UserDelete:
		if err := p.DeleteUser(ctx, a.UserID); err != nil {
			return nil, err
		}
		s.limiter.Reset(a.UserID)
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, a.Action)
	}
	if err != nil {
		return nil, err
	}
	return p.Get(ctx, a.UserID)
}

func (s *Service) Users(ctx context.Context) ([]*domain.UserPermission, error) {
	return s.permissions.List(ctx)
}

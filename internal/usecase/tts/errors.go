package tts

import (
	"errors"
	"fmt"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/permission"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/queue"
)

var (
	ErrDisabled         = errors.New("tts: disabled")
	ErrValidation       = errors.New("tts: invalid request")
	ErrEmptyText        = fmt.Errorf("%w: empty text", ErrValidation)
	ErrPermissionDenied = errors.New("tts: permission denied")
	ErrRateLimited      = errors.New("tts: rate limit exceeded")
	ErrQueueFull        = queue.ErrQueueFull
	ErrFiltered         = errors.New("tts: message dropped by profanity filter")
	ErrNoQueue          = errors.New("tts: queue not available")
)

// PermissionError carries the reason of a denial. It matches ErrPermissionDenied.
type PermissionError struct {
	Reason permission.Reason
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("tts: permission denied (%s)", e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}

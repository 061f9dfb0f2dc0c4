package domain

import "context"

type OutgoingMessagePort interface {
	SendMessage(ctx context.Context, platform Platform, channelID, text string) error
}

// MessageHandler consume los mensajes que empujan los adaptadores.
type MessageHandler func(ctx context.Context, msg Message) error

// FollowerChecker consulta si un usuario sigue al canal.
type FollowerChecker interface {
	IsFollower(ctx context.Context, userID string) (bool, error)
}

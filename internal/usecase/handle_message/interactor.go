// Package handle_message routes chat messages to commands and to the speech queue.
package handle_message

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/commands"
	ttsusecase "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts"
)

// Speaker is the part of the TTS service that reads chat aloud.
type Speaker interface {
	EnabledForChat() bool
	Submit(ctx context.Context, req ttsusecase.SubmitRequest) (domain.QueueItem, error)
}

type Interactor struct {
	router    *commands.Router
	out       domain.OutgoingMessagePort
	speaker   Speaker
	followers domain.FollowerChecker
	logger    *log.Logger
}

func NewInteractor(out domain.OutgoingMessagePort, router *commands.Router, speaker Speaker, followers domain.FollowerChecker, logger *log.Logger) *Interactor {
	if logger == nil {
		logger = log.Default()
	}
	return &Interactor{
		router:    router,
		out:       out,
		speaker:   speaker,
		followers: followers,
		logger:    logger.WithPrefix("chat"),
	}
}

func (uc *Interactor) Handle(ctx context.Context, msg domain.Message) error {
	if uc.router != nil {
		handled, err := uc.router.Handle(ctx, msg, uc.out)
		if handled || err != nil {
			return err
		}
		// another bot's command
		if uc.router.IsCommand(msg.Text) {
			return nil
		}
	}

	if msg.IsPrivate || uc.speaker == nil || !uc.speaker.EnabledForChat() {
		return nil
	}

	msg = uc.withFollower(ctx, msg)
	item, err := uc.speaker.Submit(ctx, commands.SubmitFromMessage(msg, msg.Text))
	if err != nil {
		if commands.DescribeSubmitError(err) != "" {
			uc.logger.Debug("chat message not read", "user", msg.Username, "platform", msg.Platform, "reason", err)
			return nil
		}
		return err
	}
	uc.logger.Debug("chat message queued", "id", item.ID, "user", msg.Username, "position", item.Position)
	return nil
}

// withFollower looks up follow status for Twitch viewers, whose IRC tags do
// not carry it.
func (uc *Interactor) withFollower(ctx context.Context, msg domain.Message) domain.Message {
	if uc.followers == nil || msg.Platform != domain.PlatformTwitch || msg.UserID == "" {
		return msg
	}
	if msg.IsFollower || msg.ResolveTeamLevel() >= domain.TeamLevelFollower {
		return msg
	}
	ok, err := uc.followers.IsFollower(ctx, msg.UserID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			uc.logger.Warn("follower lookup failed", "user", msg.Username, "err", err)
		}
		return msg
	}
	msg.IsFollower = ok
	return msg
}

package handle_message

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/commands"
	ttsusecase "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts"
)

type fakeSpeaker struct {
	enabled bool
	err     error
	got     []ttsusecase.SubmitRequest
}

func (f *fakeSpeaker) EnabledForChat() bool { return f.enabled }

func (f *fakeSpeaker) Submit(_ context.Context, req ttsusecase.SubmitRequest) (domain.QueueItem, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return domain.QueueItem{}, f.err
	}
	return domain.QueueItem{ID: "q1", Position: 1}, nil
}

type fakeFollowers struct {
	follows map[string]bool
	err     error
	calls   int
}

func (f *fakeFollowers) IsFollower(_ context.Context, userID string) (bool, error) {
	f.calls++
	return f.follows[userID], f.err
}

type nopOut struct{ n int }

func (o *nopOut) SendMessage(context.Context, domain.Platform, string, string) error {
	o.n++
	return nil
}

func newInteractor(s Speaker, f domain.FollowerChecker, out domain.OutgoingMessagePort) *Interactor {
	r := commands.NewRouter("!")
	r.Register(commands.NewPingCommand())
	return NewInteractor(out, r, s, f, log.New(io.Discard))
}

func TestCommandsAreNotRead(t *testing.T) {
	sp := &fakeSpeaker{enabled: true}
	out := &nopOut{}
	uc := newInteractor(sp, nil, out)

	for _, text := range []string{"!ping", "!otrobot hola"} {
		if err := uc.Handle(context.Background(), domain.Message{Platform: domain.PlatformKick, Text: text}); err != nil {
			t.Fatal(err)
		}
	}
	if len(sp.got) != 0 {
		t.Fatalf("commands reached the speaker: %+v", sp.got)
	}
	if out.n != 1 {
		t.Fatalf("replies = %d, want 1", out.n)
	}
}

func TestChatDisabledSkipsSpeaker(t *testing.T) {
	sp := &fakeSpeaker{}
	uc := newInteractor(sp, nil, &nopOut{})
	if err := uc.Handle(context.Background(), domain.Message{Text: "hola"}); err != nil {
		t.Fatal(err)
	}
	if len(sp.got) != 0 {
		t.Fatal("speaker called while chat reading is off")
	}
}

func TestChatEnrichesTwitchFollowers(t *testing.T) {
	sp := &fakeSpeaker{enabled: true}
	fol := &fakeFollowers{follows: map[string]bool{"7": true}}
	uc := newInteractor(sp, fol, &nopOut{})

	msg := domain.Message{Platform: domain.PlatformTwitch, UserID: "7", Username: "lu", Text: "hola"}
	if err := uc.Handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if got := sp.got[0]; got.TeamLevel != domain.TeamLevelFollower || got.Source != domain.SourceChat || got.Text != "hola" {
		t.Fatalf("submitted = %+v", got)
	}

	vip := msg
	vip.IsPlatformVip = true
	uc.Handle(context.Background(), vip)
	kick := msg
	kick.Platform = domain.PlatformKick
	uc.Handle(context.Background(), kick)
	if fol.calls != 1 {
		t.Fatalf("follower lookups = %d, want 1", fol.calls)
	}
}

func TestFollowerLookupFailureKeepsLevel(t *testing.T) {
	sp := &fakeSpeaker{enabled: true}
	fol := &fakeFollowers{err: errors.New("helix down")}
	uc := newInteractor(sp, fol, &nopOut{})

	uc.Handle(context.Background(), domain.Message{Platform: domain.PlatformTwitch, UserID: "9", Text: "hola"})
	if sp.got[0].TeamLevel != domain.TeamLevelViewer {
		t.Fatalf("level = %d", sp.got[0].TeamLevel)
	}
}

func TestExpectedRejectionsAreSwallowed(t *testing.T) {
	sp := &fakeSpeaker{enabled: true, err: ttsusecase.ErrRateLimited}
	uc := newInteractor(sp, nil, &nopOut{})
	if err := uc.Handle(context.Background(), domain.Message{Text: "hola"}); err != nil {
		t.Fatalf("rate limit should not surface: %v", err)
	}

	boom := errors.New("boom")
	sp.err = boom
	if err := uc.Handle(context.Background(), domain.Message{Text: "hola"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

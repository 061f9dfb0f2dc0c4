package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	ttsusecase "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

type sent struct {
	platform domain.Platform
	channel  string
	text     string
}

type recordingOut struct {
	sent []sent
}

func (o *recordingOut) SendMessage(_ context.Context, p domain.Platform, channel, text string) error {
	o.sent = append(o.sent, sent{p, channel, text})
	return nil
}

func (o *recordingOut) last() string {
	if len(o.sent) == 0 {
		return ""
	}
	return o.sent[len(o.sent)-1].text
}

type fakeController struct {
	submitted []ttsusecase.SubmitRequest
	submitErr error
	settings  ttsusecase.Settings
	skipped   int
	cleared   int
}

func (f *fakeController) Submit(_ context.Context, req ttsusecase.SubmitRequest) (domain.QueueItem, error) {
	if f.submitErr != nil {
		return domain.QueueItem{}, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return domain.QueueItem{ID: "x", Position: len(f.submitted)}, nil
}

func (f *fakeController) Voices() []engine.Descriptor {
	return []engine.Descriptor{
		{ID: engine.IDTikTok, Available: true, Voices: []engine.Voice{{ID: "en_us_001"}, {ID: "de_001"}}},
		{ID: engine.IDGoogle, Available: false, Voices: []engine.Voice{{ID: "de-DE-Wavenet-B"}}},
	}
}

func (f *fakeController) FindVoice(voiceID, _ string) (engine.Voice, string, bool) {
	if voiceID == "de_001" {
		return engine.Voice{ID: "de_001", Label: "German"}, engine.IDTikTok, true
	}
	return engine.Voice{}, "", false
}

func (f *fakeController) UpdateConfig(_ context.Context, mutate func(*ttsusecase.Settings)) (ttsusecase.Settings, error) {
	mutate(&f.settings)
	return f.settings, nil
}

func (f *fakeController) SkipCurrent(context.Context) (bool, error) {
	f.skipped++
	return true, nil
}

func (f *fakeController) ClearQueue(context.Context) (int, error) {
	f.cleared++
	return 4, nil
}

func newRouter(ctrl TTSController) *Router {
	r := NewRouter("!")
	r.Register(NewPingCommand())
	r.Register(NewHelpCommand())
	r.Register(NewTTSCommand(ctrl))
	return r
}

func chatMsg(text string) domain.Message {
	return domain.Message{Platform: domain.PlatformTwitch, ChannelID: "#canal", UserID: "42", Username: "ana", Text: text}
}

func TestRouterIgnoresPlainAndUnknown(t *testing.T) {
	r := newRouter(&fakeController{})
	out := &recordingOut{}

	for _, text := range []string{"hola", "!", "!desconocido algo"} {
		handled, err := r.Handle(context.Background(), chatMsg(text), out)
		if handled || err != nil {
			t.Fatalf("%q: handled=%v err=%v", text, handled, err)
		}
	}
	if len(out.sent) != 0 {
		t.Fatalf("unexpected replies: %+v", out.sent)
	}
	if !r.IsCommand("!desconocido") || r.IsCommand("hola") {
		t.Fatal("IsCommand mismatch")
	}
}

func TestPing(t *testing.T) {
	out := &recordingOut{}
	handled, err := newRouter(&fakeController{}).Handle(context.Background(), chatMsg("!PING"), out)
	if !handled || err != nil {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	if got := out.sent[0]; got.text != "pong desde twitch" || got.channel != "#canal" {
		t.Fatalf("reply = %+v", got)
	}
}

func TestTTSSubmitCarriesSenderStanding(t *testing.T) {
	ctrl := &fakeController{}
	out := &recordingOut{}
	msg := chatMsg("!tts hola   mundo")
	msg.IsSubscriber = true

	if _, err := newRouter(ctrl).Handle(context.Background(), msg, out); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got := ctrl.submitted[0]
	if got.Text != "hola mundo" || got.TeamLevel != domain.TeamLevelSubscriber || !got.IsSubscriber || got.Source != domain.SourceChat {
		t.Fatalf("submitted = %+v", got)
	}
	if !strings.Contains(out.last(), "posición 1") {
		t.Fatalf("reply = %q", out.last())
	}
}

func TestTTSSubmitErrorsBecomeReplies(t *testing.T) {
	cases := map[error]string{
		ttsusecase.ErrRateLimited:                          "Espera",
		&ttsusecase.PermissionError{Reason: "blacklisted"}: "permiso",
		ttsusecase.ErrQueueFull:                            "llena",
		ttsusecase.ErrFiltered:                             "filtro",
		ttsusecase.ErrDisabled:                             "desactivado",
	}
	for err, want := range cases {
		out := &recordingOut{}
		ctrl := &fakeController{submitErr: err}
		if _, herr := newRouter(ctrl).Handle(context.Background(), chatMsg("!tts hola"), out); herr != nil {
			t.Fatalf("%v: %v", err, herr)
		}
		if !strings.Contains(out.last(), want) {
			t.Fatalf("%v: reply = %q", err, out.last())
		}
	}

	boom := errors.New("boom")
	_, err := newRouter(&fakeController{submitErr: boom}).Handle(context.Background(), chatMsg("!tts hola"), &recordingOut{})
	if !errors.Is(err, boom) {
		t.Fatalf("unexpected errors must propagate, got %v", err)
	}
}

func TestTTSAdminCommands(t *testing.T) {
	ctrl := &fakeController{}
	r := newRouter(ctrl)
	ctx := context.Background()

	viewer := &recordingOut{}
	for _, text := range []string{"!tts skip", "!tts clear", "!tts voice:list", "!tts voice:de_001"} {
		r.Handle(ctx, chatMsg(text), viewer)
	}
	if len(viewer.sent) != 0 || ctrl.skipped != 0 || ctrl.cleared != 0 {
		t.Fatalf("viewers must not reach admin actions: %+v", viewer.sent)
	}

	mod := chatMsg("")
	mod.IsPlatformMod = true
	out := &recordingOut{}

	mod.Text = "!tts skip"
	r.Handle(ctx, mod, out)
	mod.Text = "!tts clear"
	r.Handle(ctx, mod, out)
	if ctrl.skipped != 1 || ctrl.cleared != 1 || !strings.Contains(out.last(), "4") {
		t.Fatalf("skip=%d clear=%d reply=%q", ctrl.skipped, ctrl.cleared, out.last())
	}

	mod.Text = "!tts voice:list"
	r.Handle(ctx, mod, out)
	if reply := out.last(); !strings.Contains(reply, "de_001") || strings.Contains(reply, "Wavenet") {
		t.Fatalf("list = %q", reply)
	}

	mod.Text = "!tts voice:de_001"
	r.Handle(ctx, mod, out)
	if ctrl.settings.DefaultVoice != "de_001" || ctrl.settings.DefaultEngine != engine.IDTikTok {
		t.Fatalf("settings = %+v", ctrl.settings)
	}

	mod.Text = "!tts voice:nope"
	r.Handle(ctx, mod, out)
	if !strings.Contains(out.last(), "desconocida") {
		t.Fatalf("reply = %q", out.last())
	}
}

func TestHelpHidesAdminUsage(t *testing.T) {
	r := newRouter(&fakeController{})
	out := &recordingOut{}
	r.Handle(context.Background(), chatMsg("!comandos"), out)
	if strings.Contains(out.last(), "skip") || !strings.Contains(out.last(), "!tts <texto>") {
		t.Fatalf("help = %q", out.last())
	}
}

func TestClip(t *testing.T) {
	if got := clip("abcdef", 4); got != "abc…" {
		t.Fatalf("clip = %q", got)
	}
	if got := clip("abc", 4); got != "abc" {
		t.Fatalf("clip = %q", got)
	}
}

// Package runtime wires the bot: storage, speech pipeline, chat platforms and
// the dashboard server.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/app"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/app/events"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/app/tts/playback"
	ttsrunner "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/app/tts/runner"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/config"
	sqlitestorage "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/persistence/sqlite"
	twitchinfra "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/platform/twitch"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/tts/elevenlabs"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/tts/google"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/tts/speechify"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/tts/tiktok"
	kickadapter "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/interface/adapters/kick"
	twitchadapter "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/interface/adapters/twitch"
	ws "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/interface/api/ws"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/interface/outs"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/commands"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/handle_message"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/notifications"
	ttsusecase "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/dispatcher"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/langdetect"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/permission"
)

type Options struct {
	// Config skips loading from the environment when set.
	Config *config.Config
	Logger *log.Logger
}

type Runtime struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.Config
	logger   *log.Logger
	store    *sqlitestorage.Store
	bus      *events.Bus
	platform *app.PlatformManager
	multiOut *outs.MultiSender
	wsServer *ws.Server
	ttsServ  *ttsusecase.Service
	runner   *ttsrunner.Runner
	dispatch domain.MessageHandler
	wg       sync.WaitGroup
	started  bool
}

func Start(ctx context.Context, opts Options) (*Runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	store, err := sqlitestorage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	runtimeCtx, cancel := context.WithCancel(ctx)
	run := &Runtime{
		ctx:      runtimeCtx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		store:    store,
		bus:      events.NewBus(logger),
		multiOut: outs.NewMultiSender(),
	}

	registry := NewEngineRegistry(cfg)
	detector := langdetect.New(0)
	speaker := dispatcher.New(dispatcher.Config{
		Registry: registry,
		Detector: detector,
		Logger:   logger,
	})
	ttsService := ttsusecase.NewService(ttsusecase.Config{
		Settings:    store,
		Permissions: permission.NewManager(permission.Config{Repo: store, Logger: logger}),
		Detector:    detector,
		Dispatcher:  speaker,
		Registry:    registry,
		Defaults:    seedSettings(cfg),
		Logger:      logger,
	})
	if err := ttsService.Load(runtimeCtx); err != nil {
		logger.Warn("using default tts settings", "err", err)
	}
	run.ttsServ = ttsService

	var player ttsrunner.Player
	var overlay *playback.Overlay
	switch cfg.TTS.PlaybackMode {
	case config.PlaybackOverlay:
		overlay = playback.NewOverlay(time.Duration(cfg.TTS.OverlayAckGraceS)*time.Second, logger)
		player = overlay
	default:
		player = playback.NewLocal(cfg.TTS.SampleRate, logger)
	}

	wsServer := ws.NewServer(ws.Config{
		Addr:   cfg.WSAddr,
		TTS:    ttsService,
		Bus:    run.bus,
		Logger: logger,
	})
	if overlay != nil {
		wsServer.SetAcker(overlay)
	}
	run.wsServer = wsServer

	run.runner = ttsrunner.New(ttsrunner.Config{
		Speaker:   speaker,
		Player:    player,
		Publisher: wsServer,
		Bus:       run.bus,
		Registry:  registry,
		QueueSize: cfg.TTS.QueueSize,
		Logger:    logger,
	})
	ttsService.SetQueue(run.runner)

	run.platform = app.NewPlatformManager(app.ManagerConfig{
		Context:  runtimeCtx,
		MultiOut: run.multiOut,
		Logger:   logger,
	})

	// web chat has no transport of its own; replies reach it through the bus
	run.multiOut.Register(domain.PlatformWeb, outs.SenderFunc(func(context.Context, domain.Platform, string, string) error {
		return nil
	}))
	run.multiOut.SetObserver(run.publishReply)

	router := commands.NewRouter(cfg.CommandPrefix)
	router.Register(commands.NewPingCommand())
	router.Register(commands.NewHelpCommand())
	router.Register(commands.NewTTSCommand(ttsService))

	followers := run.followerChecker(runtimeCtx)
	uc := handle_message.NewInteractor(run.multiOut, router, ttsService, followers, logger)

	run.dispatch = func(ctx context.Context, msg domain.Message) error {
		if msg.ChannelID == "" {
			msg.ChannelID = run.defaultChannel(msg.Platform)
		}
		if msg.Username == "" {
			msg.Username = "web-user"
		}
		run.bus.Publish(events.TopicChatMessage, events.NewChatMessageDTO(msg))

		err := uc.Handle(ctx, msg)
		if err != nil && !errors.Is(err, context.Canceled) {
			run.bus.Publish(events.TopicAppError, events.NewAppErrorDTO(string(msg.Platform), err))
		}
		return err
	}
	wsServer.SetHandler(run.dispatch)
	run.platform.SetHandler(run.dispatch)

	relay := notifications.NewRelay(ttsService, logger)
	run.startPlatforms(relay)

	run.wg.Add(1)
	go func() {
		defer run.wg.Done()
		if err := wsServer.Start(runtimeCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("ws server stopped", "err", err)
			run.bus.Publish(events.TopicAppError, events.NewAppErrorDTO("ws", err))
		}
	}()

	run.runner.Start(runtimeCtx)

	run.started = true
	logger.Info("bot started", "playback", cfg.TTS.PlaybackMode, "engines", registry.IDs(), "platforms", run.platform.Running())
	return run, nil
}

// NewEngineRegistry builds the four speech engines from cfg.
func NewEngineRegistry(cfg *config.Config) *engine.Registry {
	return engine.NewRegistry(
		tiktok.New(tiktok.Config{Endpoint: cfg.TTS.TikTokEndpoint, Disabled: cfg.TTS.TikTokDisabled}),
		google.New(google.Config{APIKey: cfg.TTS.GoogleKey}),
		speechify.New(speechify.Config{APIKey: cfg.TTS.SpeechifyKey}),
		elevenlabs.New(elevenlabs.Config{APIKey: cfg.TTS.ElevenLabsKey}),
	)
}

func seedSettings(cfg *config.Config) ttsusecase.Settings {
	st := ttsusecase.DefaultSettings()
	if cfg.TTS.DefaultEngine != "" {
		st.DefaultEngine = cfg.TTS.DefaultEngine
	}
	if cfg.TTS.DefaultVoice != "" {
		st.DefaultVoice = cfg.TTS.DefaultVoice
	}
	st.MaxQueueSize = cfg.TTS.QueueSize
	st.APIKeys = ttsusecase.APIKeys{
		ElevenLabs: cfg.TTS.ElevenLabsKey,
		Google:     cfg.TTS.GoogleKey,
		Speechify:  cfg.TTS.SpeechifyKey,
	}
	return st
}

func (r *Runtime) startPlatforms(relay *notifications.Relay) {
	if tw := r.cfg.Twitch; tw.Enabled() {
		r.platform.Enable(domain.PlatformTwitch, "#"+tw.Channels[0], twitchadapter.NewAdapter(twitchadapter.Config{
			Username:      tw.Username,
			OAuthToken:    formatTwitchOAuthToken(tw.Token),
			Channels:      tw.Channels,
			NoticeHandler: relay.HandleTwitchUserNotice,
			Logger:        r.logger,
		}))
	} else {
		r.logger.Info("twitch disabled: missing TWITCH_BOT_USERNAME, TWITCH_BOT_ACCESS_TOKEN or TWITCH_BOT_CHANNELS")
	}

	if kc := r.cfg.Kick; kc.Enabled() {
		r.platform.Enable(domain.PlatformKick, strconv.Itoa(kc.ChatroomID), kickadapter.NewAdapter(kickadapter.Config{
			AccessToken:       kc.Token,
			BroadcasterUserID: kc.BroadcasterUserID,
			ChatroomID:        kc.ChatroomID,
			EventHandler:      relay.HandleKickMessage,
			Logger:            r.logger,
		}))
	} else {
		r.logger.Info("kick disabled: missing KICK_BOT_ACCESS_TOKEN, KICK_BROADCASTER_USER_ID or KICK_CHATROOM_ID")
	}
}

func (r *Runtime) followerChecker(ctx context.Context) domain.FollowerChecker {
	tw := r.cfg.Twitch
	if !tw.FollowersEnabled() {
		return nil
	}
	svc, err := twitchinfra.NewFollowerService(tw.ClientID, tw.APIToken, tw.BroadcasterID)
	if err != nil {
		r.logger.Warn("follower lookups disabled", "err", err)
		return nil
	}
	login := tw.Username
	if len(tw.Channels) > 0 {
		login = tw.Channels[0]
	}
	if _, err := svc.ResolveBroadcaster(ctx, login); err != nil {
		r.logger.Warn("follower lookups disabled", "err", err)
		return nil
	}
	return svc
}

func (r *Runtime) defaultChannel(p domain.Platform) string {
	if ch := r.platform.ChannelID(p); ch != "" {
		return ch
	}
	if p == domain.PlatformWeb {
		return "web"
	}
	return ""
}

// publishReply mirrors bot replies to the dashboard chat.
func (r *Runtime) publishReply(platform domain.Platform, channelID, text string) {
	name := "bot"
	if platform == domain.PlatformTwitch && r.cfg.Twitch.Username != "" {
		name = r.cfg.Twitch.Username
	}
	r.bus.Publish(events.TopicChatMessage, events.NewChatMessageDTO(domain.Message{
		Platform:  platform,
		ChannelID: channelID,
		Username:  name,
		Text:      text,
	}))
}

func (r *Runtime) Stop() error {
	if r == nil || !r.started {
		return nil
	}
	r.cancel()
	r.platform.Shutdown()
	_ = r.runner.Close()
	r.wg.Wait()
	r.bus.Close()
	r.started = false
	return r.store.Close()
}

// Wait blocks until the runtime context ends.
func (r *Runtime) Wait() {
	<-r.ctx.Done()
}

func (r *Runtime) Bus() *events.Bus {
	return r.bus
}

func (r *Runtime) TTSService() *ttsusecase.Service {
	return r.ttsServ
}

func (r *Runtime) TTSRunner() *ttsrunner.Runner {
	return r.runner
}

func (r *Runtime) Config() *config.Config {
	return r.cfg
}

func (r *Runtime) DispatchMessage(ctx context.Context, msg domain.Message) error {
	if r == nil || r.dispatch == nil {
		return fmt.Errorf("runtime: dispatcher unavailable")
	}
	if ctx == nil {
		ctx = r.ctx
	}
	return r.dispatch(ctx, msg)
}

func formatTwitchOAuthToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" || strings.HasPrefix(token, "oauth:") {
		return token
	}
	return "oauth:" + token
}

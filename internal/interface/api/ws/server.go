package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/app/events"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

const DefaultAddr = ":8080"

// PlaybackAcker is told when an overlay finished playing a clip.
type PlaybackAcker interface {
	Ack(id string) bool
}

type Config struct {
	Addr   string
	TTS    TTSService
	Bus    *events.Bus
	Acker  PlaybackAcker
	Logger *log.Logger
}

// Server serves the dashboard API and a websocket that mirrors bus events to
// overlays and dashboards.
type Server struct {
	addr     string
	logger   *log.Logger
	bus      *events.Bus
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	handler domain.MessageHandler
	acker   PlaybackAcker

	api    *apiHandlers
	router http.Handler
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(v)
}

// envelope is the frame format in both directions.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:   addr,
		logger: logger.WithPrefix("ws"),
		bus:    cfg.Bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
		acker:   cfg.Acker,
	}
	s.api = newAPIHandlers(cfg.TTS, s.logger)
	s.router = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ws", s.handleWS)
	r.Get("/ws/chat", s.handleWS)
	r.Route("/api/tts", s.api.register)
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.forward(ctx)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("shutdown", "err", err)
		}
	}()

	s.logger.Info("listening", "addr", s.addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// forward relays TTS and chat bus topics to every websocket client.
func (s *Server) forward(ctx context.Context) {
	if s.bus == nil {
		return
	}
	topics := append([]string{events.TopicChatMessage, events.TopicAppError}, events.TTSTopics...)
	for _, topic := range topics {
		ch, unsubscribe := s.bus.Subscribe(topic)
		go func(topic string) {
			defer unsubscribe()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-ch:
					if !ok {
						return
					}
					s.broadcast(ctx, envelope{Type: topic, Data: payload})
				}
			}
		}(topic)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade", "err", err)
		return
	}
	client := &wsClient{conn: conn}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()
	s.logger.Info("client connected", "remote", r.RemoteAddr, "clients", count)

	go s.handleClient(context.WithoutCancel(r.Context()), client)
}

func (s *Server) handleClient(ctx context.Context, client *wsClient) {
	defer func() {
		s.drop(client)
	}()

	for {
		msgType, data, err := client.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read", "err", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := s.dispatchIncoming(ctx, data); err != nil {
			s.logger.Warn("incoming frame", "err", err)
		}
	}
}

func (s *Server) drop(client *wsClient) {
	s.mu.Lock()
	_, ok := s.clients[client]
	delete(s.clients, client)
	count := len(s.clients)
	s.mu.Unlock()
	if ok {
		client.conn.Close()
		s.logger.Info("client disconnected", "clients", count)
	}
}

type incomingFrame struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Text      string `json:"text"`
	Platform  string `json:"platform"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
}

// dispatchIncoming handles overlay acks and dashboard chat lines. Plain text
// frames are treated as chat.
func (s *Server) dispatchIncoming(ctx context.Context, data []byte) error {
	var in incomingFrame
	if err := json.Unmarshal(data, &in); err != nil {
		in = incomingFrame{Text: string(data)}
	}

	switch in.Type {
	case events.TopicTTSEnded:
		s.mu.RLock()
		acker := s.acker
		s.mu.RUnlock()
		if acker != nil && in.ID != "" {
			acker.Ack(in.ID)
		}
		return nil
	case "", "chat":
	default:
		return errors.New("ws: unknown frame type " + in.Type)
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return errors.New("ws: empty incoming text")
	}
	handler := s.getHandler()
	if handler == nil {
		return nil
	}

	msg := domain.Message{
		Platform:        normalizePlatform(in.Platform),
		ChannelID:       strings.TrimSpace(in.ChannelID),
		UserID:          firstNonEmpty(in.UserID, "web"),
		Username:        firstNonEmpty(in.Username, "web-user"),
		Text:            text,
		IsPlatformOwner: true,
	}
	return handler(ctx, msg)
}

func (s *Server) getHandler() domain.MessageHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

func (s *Server) SetHandler(h domain.MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Server) SetAcker(a PlaybackAcker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acker = a
}

func normalizePlatform(p string) domain.Platform {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case string(domain.PlatformTwitch):
		return domain.PlatformTwitch
	case string(domain.PlatformKick):
		return domain.PlatformKick
	default:
		return domain.PlatformWeb
	}
}

func firstNonEmpty(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

// PublishTTSEvent sends finished audio to overlays as a tts:ready frame.
func (s *Server) PublishTTSEvent(ctx context.Context, event domain.TTSEvent) error {
	return s.broadcast(ctx, envelope{Type: events.TopicTTSReady, Data: event})
}

func (s *Server) broadcast(ctx context.Context, env envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	s.mu.RLock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.writeJSON(json.RawMessage(payload)); err != nil {
			s.logger.Warn("removing client after write error", "err", err)
			s.drop(c)
		}
	}
	return nil
}

// ClientCount reports connected websocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

var _ domain.TTSEventPublisher = (*Server)(nil)

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	ttsusecase "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

// TTSService is what the dashboard API drives.
type TTSService interface {
	Submit(ctx context.Context, req ttsusecase.SubmitRequest) (domain.QueueItem, error)
	Voices() []engine.Descriptor
	QueueStatus() ttsusecase.QueueStatus
	ClearQueue(ctx context.Context) (int, error)
	SkipCurrent(ctx context.Context) (bool, error)
	Users(ctx context.Context) ([]*domain.UserPermission, error)
	ManageUser(ctx context.Context, action ttsusecase.UserAction) (*domain.UserPermission, error)
	Config() ttsusecase.Settings
	SetConfig(ctx context.Context, next ttsusecase.Settings) (ttsusecase.Settings, error)
}

const dashboardUser = "dashboard"

type apiHandlers struct {
	tts    TTSService
	logger *log.Logger
}

func newAPIHandlers(svc TTSService, logger *log.Logger) *apiHandlers {
	return &apiHandlers{tts: svc, logger: logger}
}

func (h *apiHandlers) register(r chi.Router) {
	r.Use(h.requireService)

	r.Post("/speak", h.speak)
	r.Get("/voices", h.voices)

	r.Route("/queue", func(r chi.Router) {
		r.Get("/", h.queueStatus)
		r.Post("/clear", h.clearQueue)
		r.Post("/skip", h.skip)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Post("/", h.manageUser)
		r.Delete("/{id}", h.deleteUser)
	})

	r.Get("/config", h.getConfig)
	r.Put("/config", h.putConfig)
}

func (h *apiHandlers) requireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.tts == nil {
			writeError(w, http.StatusServiceUnavailable, "tts service not available")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// speak enqueues text from the dashboard. Requests default to the manual
// source, which skips viewer permission and rate checks.
func (h *apiHandlers) speak(w http.ResponseWriter, r *http.Request) {
	var req ttsusecase.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		req.Source = domain.SourceManual
	}
	if strings.TrimSpace(req.UserID) == "" && strings.TrimSpace(req.Username) == "" {
		req.UserID, req.Username = dashboardUser, dashboardUser
	}
	if req.Platform == "" {
		req.Platform = domain.PlatformWeb
	}

	item, err := h.tts.Submit(r.Context(), req)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, item)
}

func (h *apiHandlers) writeSubmitError(w http.ResponseWriter, err error) {
	var perr *ttsusecase.PermissionError
	switch {
	case errors.As(err, &perr):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error(), "reason": string(perr.Reason)})
	case errors.Is(err, ttsusecase.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ttsusecase.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ttsusecase.ErrFiltered):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ttsusecase.ErrQueueFull),
		errors.Is(err, ttsusecase.ErrDisabled),
		errors.Is(err, ttsusecase.ErrNoQueue):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("submit", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *apiHandlers) voices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"engines": h.tts.Voices()})
}

func (h *apiHandlers) queueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tts.QueueStatus())
}

func (h *apiHandlers) clearQueue(w http.ResponseWriter, r *http.Request) {
	n, err := h.tts.ClearQueue(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *apiHandlers) skip(w http.ResponseWriter, r *http.Request) {
	ok, err := h.tts.SkipCurrent(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"skipped": ok})
}

func (h *apiHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.tts.Users(r.Context())
	if err != nil {
		h.logger.Error("list users", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if users == nil {
		users = []*domain.UserPermission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *apiHandlers) manageUser(w http.ResponseWriter, r *http.Request) {
	var action ttsusecase.UserAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.applyUserAction(w, r, action)
}

func (h *apiHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	h.applyUserAction(w, r, ttsusecase.UserAction{Action: ttsusecase.UserDelete, UserID: chi.URLParam(r, "id")})
}

func (h *apiHandlers) applyUserAction(w http.ResponseWriter, r *http.Request, action ttsusecase.UserAction) {
	perm, err := h.tts.ManageUser(r.Context(), action)
	switch {
	case errors.Is(err, ttsusecase.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("manage user", "action", action.Action, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if perm == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, perm)
}

func (h *apiHandlers) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tts.Config())
}

// putConfig replaces the settings. Fields missing from the body keep their
// current value since the body is decoded on top of the current config.
func (h *apiHandlers) putConfig(w http.ResponseWriter, r *http.Request) {
	next := h.tts.Config()
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	saved, err := h.tts.SetConfig(r.Context(), next)
	switch {
	case errors.Is(err, ttsusecase.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("save config", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

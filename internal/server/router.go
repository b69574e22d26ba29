package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/shared"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// FeedHandler serves a [Feed] over HTTP.
type FeedHandler struct {
	feed   *Feed
	logger *log.Logger
}

// NewRouter creates the HTTP router for feed with request middleware applied.
func NewRouter(feed *Feed, logger *log.Logger) *chi.Mux {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	h := &FeedHandler{feed: feed, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))

	r.Get("/health", h.Health)
	r.Get("/state", h.State)
	r.Get("/events", h.Events)
	r.Get("/slideshow", h.Slideshow)
	r.Post("/sync", h.Sync)
	return r
}

type stateResponse struct {
	Running bool             `json:"running"`
	State   models.StateView `json:"state"`
}

// Health handles GET /health.
func (h *FeedHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// State handles GET /state with the latest state of the most recent pass.
func (h *FeedHandler) State(w http.ResponseWriter, r *http.Request) {
	view, running := h.feed.Latest()
	writeJSON(w, http.StatusOK, stateResponse{Running: running, State: view})
}

// Slideshow handles GET /slideshow with the item currently on display.
func (h *FeedHandler) Slideshow(w http.ResponseWriter, r *http.Request) {
	slide, ok := h.feed.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "No media found")
		return
	}
	writeJSON(w, http.StatusOK, slide)
}

// Sync handles POST /sync by starting a new pass.
func (h *FeedHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.feed.Start(); err != nil {
		if errors.Is(err, shared.ErrSyncBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to start pass", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// Events handles GET /events as a server-sent event stream of state views.
func (h *FeedHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	states, release := h.feed.Subscribe()
	defer release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case view := <-states:
			data, err := json.Marshal(view)
			if err != nil {
				h.logger.Error("failed to encode state", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

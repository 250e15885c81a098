package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/clone-service/internal/delivery/http/request"
	"github.com/user/clone-service/internal/delivery/http/response"
	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
	"github.com/user/clone-service/internal/usecase"
)

const sseKeepAlive = 15 * time.Second

type Options struct {
	// BaseContext parents clones started with POST /api/clones. Cancelling
	// it cancels them.
	BaseContext context.Context
	// WSPollInterval is how often the WebSocket feed checks the event log.
	WSPollInterval time.Duration
}

type Handler struct {
	pipeline  usecase.ClonePipeline
	artifacts repository.ArtifactStore
	opts      Options
}

// NewHandler builds the HTTP handlers. artifacts may be nil.
func NewHandler(pipeline usecase.ClonePipeline, artifacts repository.ArtifactStore, opts Options) *Handler {
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	if opts.WSPollInterval <= 0 {
		opts.WSPollInterval = 500 * time.Millisecond
	}
	return &Handler{pipeline: pipeline, artifacts: artifacts, opts: opts}
}

// HandleClone runs a clone and streams its events as server-sent events.
// A client disconnect cancels the clone.
func (h *Handler) HandleClone(w http.ResponseWriter, r *http.Request) {
	var req request.CloneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, events, err := h.pipeline.Start(r.Context(), req.URL)
	if err != nil {
		h.writeStartError(w, req.URL, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Clone-ID", id)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	// Writes can outlive the server's WriteTimeout on long clones.
	_ = rc.SetWriteDeadline(time.Time{})
	_ = rc.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	writeOK := true
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if writeOK {
				writeOK = writeSSE(w, ev) == nil && rc.Flush() == nil
			}
		case <-ticker.C:
			if writeOK {
				_, err := fmt.Fprint(w, ": keep-alive\n\n")
				writeOK = err == nil && rc.Flush() == nil
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, ev entity.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", ev.Seq, data)
	return err
}

// HandleSubmitClone starts a clone that outlives the request. Progress is
// read back through the events endpoints.
func (h *Handler) HandleSubmitClone(w http.ResponseWriter, r *http.Request) {
	var req request.CloneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, events, err := h.pipeline.Start(h.opts.BaseContext, req.URL)
	if err != nil {
		h.writeStartError(w, req.URL, err)
		return
	}
	go func() {
		for range events {
		}
	}()

	h.writeJSON(w, http.StatusAccepted, response.SubmitCloneResponse{
		Status:    "accepted",
		Message:   "Clone started",
		CloneID:   id,
		EventsURL: "/api/clones/" + id + "/events",
	})
}

func (h *Handler) writeStartError(w http.ResponseWriter, url string, err error) {
	switch {
	case errors.Is(err, repository.ErrInvalidURL):
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrCloneInFlight):
		h.writeJSONError(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("Failed to start clone", "url", url, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) HandleGetClone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.pipeline.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "Clone not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get clone", "clone_id", id, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	withCode := r.URL.Query().Get("include") == "code"
	h.writeJSON(w, http.StatusOK, response.FromRecord(rec, withCode))
}

// HandleCloneEvents returns archived events from ?from= (default 1).
func (h *Handler) HandleCloneEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	from, err := parseFrom(r)
	if err != nil {
		h.writeJSONError(w, "Invalid from parameter", http.StatusBadRequest)
		return
	}

	events, err := h.pipeline.Replay(r.Context(), id, from)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "Event log not available", http.StatusNotFound)
			return
		}
		slog.Error("Failed to replay events", "clone_id", id, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(events) == 0 && from <= 1 && !h.cloneExists(r.Context(), id) {
		h.writeJSONError(w, "Clone not found", http.StatusNotFound)
		return
	}

	resp := response.EventsResponse{Events: events, Next: from}
	if resp.Events == nil {
		resp.Events = []entity.Event{}
	}
	if n := len(events); n > 0 {
		resp.Next = events[n-1].Seq + 1
		resp.Done = events[n-1].IsTerminal()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandlePreview redirects to the captured static HTML of a finished clone.
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if h.artifacts == nil {
		h.writeJSONError(w, "Artifact storage is not configured", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	u, err := h.artifacts.URL(r.Context(), usecase.StaticHTMLKey(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "No static preview for this clone", http.StatusNotFound)
			return
		}
		slog.Error("Failed to sign preview URL", "clone_id", id, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) cloneExists(ctx context.Context, id string) bool {
	_, err := h.pipeline.Get(ctx, id)
	return err == nil
}

func parseFrom(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("from")
	if raw == "" {
		return 1, nil
	}
	from, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || from < 0 {
		return 0, errors.New("invalid from")
	}
	return from, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

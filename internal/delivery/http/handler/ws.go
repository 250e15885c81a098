package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/user/clone-service/internal/repository"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleCloneWS streams a clone's events over a WebSocket by following the
// event log from ?from=. The connection closes after the terminal event.
func (h *Handler) HandleCloneWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	from, err := parseFrom(r)
	if err != nil {
		h.writeJSONError(w, "Invalid from parameter", http.StatusBadRequest)
		return
	}
	initial, err := h.pipeline.Replay(r.Context(), id, from)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "Event log not available", http.StatusNotFound)
			return
		}
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(initial) == 0 && from <= 1 && !h.cloneExists(r.Context(), id) {
		h.writeJSONError(w, "Clone not found", http.StatusNotFound)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only serve pongs and close frames.
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	poll := time.NewTicker(h.opts.WSPollInterval)
	defer poll.Stop()
	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()

	for {
		events, err := h.pipeline.Replay(ctx, id, from)
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("Event replay failed", "clone_id", id, "error", err)
			}
			return
		}
		for _, ev := range events {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			from = ev.Seq + 1
			if ev.IsTerminal() {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(ev.Status)),
					time.Now().Add(wsWriteWait))
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-poll.C:
		}
	}
}

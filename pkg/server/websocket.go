package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWatchWebSocket streams full notebook snapshots: one on connect,
// then one for every store write to the watched notebook. The stream is
// one-way; the client's read side only signals disconnect.
func (s *Server) handleWatchWebSocket(w http.ResponseWriter, r *http.Request) {
	notebookID := r.PathValue("id")
	if notebookID == "" {
		http.Error(w, "Missing notebook ID", http.StatusBadRequest)
		return
	}

	if _, err := s.notebooks.Get(r.Context(), notebookID); err != nil {
		http.Error(w, "Notebook not found", http.StatusNotFound)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	done := make(chan struct{})
	updates := s.notebooks.Subscribe()
	defer s.notebooks.Unsubscribe(updates)

	if err := s.pushSnapshot(ws, notebookID); err != nil {
		slog.Error("Failed initial snapshot push", "error", err)
		return
	}

	// Writer goroutine: pushes a fresh snapshot on every matching write.
	go func() {
		defer ws.Close()

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case eventID, ok := <-updates:
				if !ok {
					return
				}
				if eventID == notebookID {
					if err := s.pushSnapshot(ws, notebookID); err != nil {
						slog.Error("Failed snapshot push", "error", err)
						return
					}
				}
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop: drains until the client goes away.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("WebSocket closed", "error", err)
			}
			break
		}
	}

	close(done)
}

func (s *Server) pushSnapshot(ws *websocket.Conn, notebookID string) error {
	nb, err := s.notebooks.Get(context.Background(), notebookID)
	if err != nil {
		return err
	}
	return ws.WriteJSON(nb)
}

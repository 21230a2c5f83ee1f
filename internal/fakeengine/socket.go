package fakeengine

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/llm-among-us/internal/types"
)

// StatusGameNotFound closes a push socket whose game went away while it
// was joining. A game unknown at handshake time is refused with 403.
const StatusGameNotFound websocket.StatusCode = 4004

func (s *Server) socket(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, OpSocket) {
		return
	}
	gameID := chi.URLParam(r, "gameID")

	rm := s.hub.Get(gameID)
	if rm == nil {
		http.Error(w, "Game not found", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // browser clients on any origin
	})
	if err != nil {
		return
	}
	defer func() { _ = conn.CloseNow() }()

	clientID := uuid.NewString()
	log := s.log.With(zap.String("game_id", gameID), zap.String("client_id", clientID))

	out := make(chan []byte, 8)
	if !rm.send(Join{ClientID: clientID, Outbox: out}) {
		_ = conn.Close(StatusGameNotFound, "Game not found")
		return
	}
	defer rm.send(Leave{ClientID: clientID})
	log.Debug("socket joined")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Writer: drains the outbox until the room lets go of this socket.
	go func() {
		for frame := range out {
			wctx, wcancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			wcancel()
			if err != nil {
				cancel()
				return
			}
		}
		_ = conn.Close(websocket.StatusGoingAway, "game closed")
		cancel()
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Debug("socket closed")
			default:
				log.Debug("socket dropped", zap.Error(err))
			}
			return
		}

		var f types.ClientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		if f.Type == types.FramePing {
			_ = wsjson.Write(ctx, conn, types.ClientFrame{Type: types.FramePong})
		}
	}
}

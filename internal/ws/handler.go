package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ddz-client/internal/hub"
	"github.com/DoyleJ11/ddz-client/internal/session"
)

// Renderer stream frames.
const (
	StreamSnapshot = "SNAPSHOT"
	StreamRejected = "REJECTED"
)

// Intents a renderer may send over the stream.
const (
	IntentToggle         = "TOGGLE"
	IntentClearSelection = "CLEAR_SELECTION"
	IntentBid            = "BID"
	IntentSelectLandlord = "SELECT_LANDLORD"
	IntentPlay           = "PLAY"
	IntentPass           = "PASS"
	IntentDismissNotice  = "DISMISS_NOTICE"
)

type StreamMessage struct {
	Type     string            `json:"type"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Intent   string            `json:"intent,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type Intent struct {
	Type   string `json:"type"`
	Index  int    `json:"index,omitempty"`
	Value  int    `json:"value,omitempty"`
	Target string `json:"target,omitempty"`
}

// Handler streams snapshots of an entered session to a local renderer and
// accepts intents back on the same socket.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		entry, err := h.Get(r.Context(), sessionID)
		if err != nil {
			http.Error(w, "session not entered", http.StatusNotFound)
			return
		}
		s := entry.Session

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		out, err := s.Subscribe(r.Context(), clientID, 8)
		if err != nil {
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = s.Unsubscribe(ctx, clientID)
		}()

		log := log.With(zap.String("session_id", sessionID), zap.String("client_id", clientID))
		log.Debug("renderer attached")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				writeStream(writeCtx, conn, StreamMessage{Type: StreamSnapshot, Snapshot: &snap})
			}
			// Dropped as a slow subscriber, or the session went away.
			conn.Close(websocket.StatusGoingAway, "stream ended")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("renderer read ended", zap.Error(err))
				}
				return
			}

			var in Intent
			if err := json.Unmarshal(data, &in); err != nil {
				writeStream(r.Context(), conn, StreamMessage{Type: StreamRejected, Error: "bad json"})
				continue
			}
			if err := dispatch(r.Context(), s, in); err != nil {
				log.Debug("intent rejected", zap.String("intent", in.Type), zap.Error(err))
				writeStream(r.Context(), conn, StreamMessage{Type: StreamRejected, Intent: in.Type, Error: err.Error()})
			}
		}
	}
}

func dispatch(ctx context.Context, s *session.Session, in Intent) error {
	switch in.Type {
	case IntentToggle:
		return s.Toggle(ctx, in.Index)
	case IntentClearSelection:
		return s.ClearSelection(ctx)
	case IntentBid:
		return s.Bid(ctx, in.Value)
	case IntentSelectLandlord:
		return s.SelectLandlord(ctx, in.Target)
	case IntentPlay:
		return s.Play(ctx)
	case IntentPass:
		return s.Pass(ctx)
	case IntentDismissNotice:
		return s.DismissNotice(ctx)
	default:
		return fmt.Errorf("unknown intent %q", in.Type)
	}
}

func writeStream(ctx context.Context, conn *websocket.Conn, msg StreamMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}

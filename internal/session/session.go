package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/ddz-client/internal/engine"
	"github.com/DoyleJ11/ddz-client/internal/gate"
	"github.com/DoyleJ11/ddz-client/internal/types"
)

var ErrClosed = errors.New("session closed")

type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (c ConnState) String() string {
	switch c {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "IDLE"
	}
}

func (c ConnState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ConnState) UnmarshalText(b []byte) error {
	for _, s := range []ConnState{StateIdle, StateConnecting, StateConnected, StateClosed} {
		if s.String() == string(b) {
			*c = s
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", b)
}

// Sender is the outbound half of a transport.
type Sender interface {
	Send(ctx context.Context, msg types.ClientMessage) error
}

type Config struct {
	SessionID string
	PlayerID  string
	Logger    *zap.Logger
}

type NoticeKind string

const (
	NoticeError NoticeKind = "error"
	NoticeInfo  NoticeKind = "info"
)

type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text"`
}

// Snapshot is everything a renderer needs, computed after each change.
type Snapshot struct {
	Version     int               `json:"version"`
	SessionID   string            `json:"sessionId"`
	PlayerID    string            `json:"playerId,omitempty"`
	Status      ConnState         `json:"status"`
	Reconciled  bool              `json:"reconciled"`
	Stale       bool              `json:"stale"`
	View        engine.View       `json:"view"`
	Hand        []engine.Card     `json:"hand,omitempty"`
	Selection   []int             `json:"selection"`
	Permissions gate.Permissions  `json:"permissions"`
	Names       map[string]string `json:"names"`
	Notice      *Notice           `json:"notice,omitempty"`
}

type Session struct {
	inbox  chan Msg
	sender Sender
	log    *zap.Logger

	sessionID string
	playerID  string

	connID string
	status ConnState
	fresh  bool

	view      engine.View
	selection *gate.Selection
	notice    *Notice
	version   int

	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
}

// New starts a session loop reading from inbox, which is created when nil.
// Passing it in lets a transport be built before the session that owns it.
func New(parent context.Context, cfg Config, inbox chan Msg, sender Sender) *Session {
	ctx, cancel := context.WithCancel(parent)

	if inbox == nil {
		inbox = make(chan Msg, 64)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Session{
		inbox:     inbox,
		sender:    sender,
		log:       log.With(zap.String("session_id", cfg.SessionID)),
		sessionID: cfg.SessionID,
		playerID:  cfg.PlayerID,
		view:      engine.NewEmptyView(),
		selection: gate.NewSelection(),
		clients:   make(map[string]chan Snapshot),
		ctx:       ctx,
		cancel:    cancel,
	}

	go s.loop()
	return s
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Dialing:
				s.connID = msg.ConnID
				s.status = StateConnecting
				s.fresh = false
				s.publish()

			case Opened:
				if msg.ConnID != s.connID {
					break
				}
				s.status = StateConnected
				s.fresh = false
				s.log.Info("connected", zap.String("conn_id", msg.ConnID))
				s.publish()

			case FromServer:
				if msg.ConnID != s.connID || s.status != StateConnected {
					break
				}
				if s.reconcile(msg.Msg.ToFrame()) {
					s.publish()
				}

			case TransportError:
				if msg.ConnID != s.connID {
					break
				}
				s.log.Warn("transport error", zap.String("conn_id", msg.ConnID), zap.Error(msg.Err))

			case Closed:
				if msg.ConnID != s.connID {
					break
				}
				// The last view is kept so the renderer can show it as stale.
				s.status = StateClosed
				s.fresh = false
				s.log.Info("disconnected",
					zap.String("conn_id", msg.ConnID),
					zap.Int("code", msg.Code),
					zap.String("reason", msg.Reason))
				s.publish()

			case Toggle:
				msg.Reply <- s.toggle(msg.Index)

			case ClearSelection:
				if s.selection.Len() > 0 {
					s.selection.Clear()
					s.publish()
				}

			case Bid:
				msg.Reply <- s.act(func(v engine.View, self string, link gate.Link) (types.ClientMessage, error) {
					return gate.Bid(v, self, link, msg.Value)
				})

			case SelectLandlord:
				msg.Reply <- s.act(func(v engine.View, self string, link gate.Link) (types.ClientMessage, error) {
					return gate.SelectLandlord(v, self, link, msg.Target)
				})

			case Play:
				msg.Reply <- s.act(func(v engine.View, self string, link gate.Link) (types.ClientMessage, error) {
					return gate.Play(v, self, link, s.selection)
				})

			case Pass:
				msg.Reply <- s.act(gate.Pass)

			case DismissNotice:
				if s.notice != nil {
					s.notice = nil
					s.publish()
				}

			case Rebind:
				if msg.PlayerID == s.playerID {
					break
				}
				s.playerID = msg.PlayerID
				s.selection.Clear()
				// The private state belonged to the previous identity, and so
				// does the current connection: only the next Dialing is accepted.
				s.view.Session = nil
				s.connID = ""
				s.status = StateIdle
				s.fresh = false
				s.publish()

			case Subscribe:
				s.clients[msg.ClientID] = msg.Outbox
				select {
				case msg.Outbox <- s.snapshot():
				default:
				}

			case Unsubscribe:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case GetState:
				msg.Reply <- s.snapshot()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// reconcile folds one inbound frame into the view. It reports whether
// anything observable changed.
func (s *Session) reconcile(f engine.Frame) bool {
	events, next, err := engine.Apply(s.view, f)
	if err != nil {
		s.log.Debug("frame ignored", zap.String("type", string(f.Type)), zap.Error(err))
		return false
	}
	s.view = next

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtStateReplaced:
			s.fresh = true

		case engine.EvtRosterMerged:
			// A roster merge keeps the old turn, so it only refreshes a
			// spectator, who has no turn to act on.
			if s.playerID == "" {
				s.fresh = true
			}

		case engine.EvtPhaseChanged:
			if ev.To != engine.PhasePlay {
				s.selection.Clear()
			}
			if ev.To != engine.PhaseTerminated && ev.To != engine.PhaseLobby {
				s.notice = nil
			}
			s.log.Info("phase changed", zap.String("from", string(ev.From)), zap.String("to", string(ev.To)))

		case engine.EvtHandChanged:
			s.selection.Clear()

		case engine.EvtServerError:
			s.notice = &Notice{Kind: NoticeError, Text: ev.Message}
			s.log.Warn("server error", zap.String("error", ev.Message))

		case engine.EvtNotice:
			s.notice = &Notice{Kind: NoticeInfo, Text: ev.Message}
		}
	}

	if s.view.Phase != engine.PhasePlay {
		s.selection.Clear()
	}
	return true
}

func (s *Session) link() gate.Link {
	return gate.Link{Connected: s.status == StateConnected, Fresh: s.fresh}
}

func (s *Session) toggle(index int) error {
	if err := gate.CheckSelect(s.view, s.playerID, s.link()); err != nil {
		return err
	}
	if err := s.selection.Toggle(index, len(s.view.Hand())); err != nil {
		return err
	}
	s.publish()
	return nil
}

type buildFunc func(v engine.View, self string, link gate.Link) (types.ClientMessage, error)

// act runs a turn action through the gate and hands it to the transport.
// The selection is cleared once a request leaves, whatever the outcome; the
// next update from the server decides whether it took effect.
func (s *Session) act(build buildFunc) error {
	req, err := build(s.view, s.playerID, s.link())
	if err != nil {
		return err
	}

	err = s.sender.Send(s.ctx, req)
	if err != nil {
		s.log.Warn("send failed", zap.String("type", req.Type), zap.Error(err))
	}

	s.selection.Clear()
	s.publish()
	return err
}

func (s *Session) snapshot() Snapshot {
	link := s.link()
	return Snapshot{
		Version:     s.version,
		SessionID:   s.sessionID,
		PlayerID:    s.playerID,
		Status:      s.status,
		Reconciled:  s.view.Reconciled,
		Stale:       s.view.Reconciled && !(link.Connected && link.Fresh),
		View:        s.view,
		Hand:        s.view.Hand(),
		Selection:   s.selection.Indices(),
		Permissions: gate.Evaluate(s.view, s.playerID, link),
		Names:       s.view.Names,
		Notice:      s.notice,
	}
}

func (s *Session) publish() {
	s.version++
	s.broadcast(s.snapshot())
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
		default:
			// Slow subscriber, drop it.
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) ID() string { return s.sessionID }

// Done is closed once the session loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

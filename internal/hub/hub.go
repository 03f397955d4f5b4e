package hub

import (
	"context"
	"errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ddz-client/internal/identity"
	"github.com/DoyleJ11/ddz-client/internal/session"
)

var (
	ErrUnknownSession = errors.New("session not entered")
	ErrHubClosed      = errors.New("hub closed")
)

// Transport is what the hub needs from a session transport.
type Transport interface {
	session.Sender
	Connect(ctx context.Context, sessionID, playerID string) bool
	Close() error
}

// TransportFactory builds a transport that reports into inbox.
type TransportFactory func(inbox chan<- session.Msg) Transport

type Entry struct {
	Session   *session.Session
	Transport Transport
	PlayerID  string
}

type HubMsg interface{ isHubMsg() }

type EnterSession struct {
	SessionID string
	PlayerID  string
	Reply     chan *Entry
}

type GetSession struct {
	SessionID string
	Reply     chan *Entry
}

// BindIdentity switches the identity used for a session and reconnects.
type BindIdentity struct {
	SessionID string
	PlayerID  string
	Reply     chan error
}

// Retry is an explicit user request to dial again after a drop.
type Retry struct {
	SessionID string
	Reply     chan error
}

type LeaveSession struct {
	SessionID string
	Reply     chan error
}

type ShutdownHub struct {
	Reply chan error
}

func (EnterSession) isHubMsg() {}
func (GetSession) isHubMsg()   {}
func (BindIdentity) isHubMsg() {}
func (Retry) isHubMsg()        {}
func (LeaveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*Entry
	store    identity.Store
	dial     TransportFactory
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, store identity.Store, dial TransportFactory, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*Entry),
		store:    store,
		dial:     dial,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			_ = h.closeAll()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnterSession:
				if e := h.sessions[msg.SessionID]; e != nil {
					msg.Reply <- e
					break
				}
				msg.Reply <- h.enter(msg.SessionID, msg.PlayerID)

			case GetSession:
				msg.Reply <- h.sessions[msg.SessionID] // May be nil

			case BindIdentity:
				e := h.sessions[msg.SessionID]
				if e == nil {
					msg.Reply <- ErrUnknownSession
					break
				}
				if e.PlayerID != msg.PlayerID {
					e.PlayerID = msg.PlayerID
					e.Session.Inbox() <- session.Rebind{PlayerID: msg.PlayerID}
				}
				e.Transport.Connect(h.ctx, msg.SessionID, e.PlayerID)
				msg.Reply <- nil

			case Retry:
				e := h.sessions[msg.SessionID]
				if e == nil {
					msg.Reply <- ErrUnknownSession
					break
				}
				if !e.Transport.Connect(h.ctx, msg.SessionID, e.PlayerID) {
					h.log.Debug("retry ignored, already live", zap.String("session_id", msg.SessionID))
				}
				msg.Reply <- nil

			case LeaveSession:
				e := h.sessions[msg.SessionID]
				if e == nil {
					msg.Reply <- ErrUnknownSession
					break
				}
				delete(h.sessions, msg.SessionID)
				msg.Reply <- h.leave(e)

			case ShutdownHub:
				msg.Reply <- h.closeAll()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) enter(sessionID, playerID string) *Entry {
	inbox := make(chan session.Msg, 64)
	tr := h.dial(inbox)
	s := session.New(h.ctx, session.Config{
		SessionID: sessionID,
		PlayerID:  playerID,
		Logger:    h.log,
	}, inbox, tr)

	e := &Entry{Session: s, Transport: tr, PlayerID: playerID}
	h.sessions[sessionID] = e
	tr.Connect(h.ctx, sessionID, playerID)

	h.log.Info("entered session",
		zap.String("session_id", sessionID),
		zap.Bool("spectator", playerID == ""))
	return e
}

// leave discards the view along with the connection.
func (h *Hub) leave(e *Entry) error {
	err := e.Transport.Close()
	select {
	case e.Session.Inbox() <- session.Shutdown{}:
	case <-e.Session.Done():
	}
	return err
}

func (h *Hub) closeAll() error {
	var err error
	for id, e := range h.sessions {
		err = multierr.Append(err, h.leave(e))
		delete(h.sessions, id)
	}
	return err
}

func (h *Hub) request(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func awaitReply[T any](ctx context.Context, h *Hub, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		// The hub may have answered on its way out.
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrHubClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Enter resolves the stored identity for sessionID and opens the session,
// as a spectator when none is stored. Entering twice returns the same entry.
func (h *Hub) Enter(ctx context.Context, sessionID string) (*Entry, error) {
	playerID, _, err := h.store.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	reply := make(chan *Entry, 1)
	if err := h.request(ctx, EnterSession{SessionID: sessionID, PlayerID: playerID, Reply: reply}); err != nil {
		return nil, err
	}
	return awaitReply(ctx, h, reply)
}

func (h *Hub) Get(ctx context.Context, sessionID string) (*Entry, error) {
	reply := make(chan *Entry, 1)
	if err := h.request(ctx, GetSession{SessionID: sessionID, Reply: reply}); err != nil {
		return nil, err
	}
	e, err := awaitReply(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrUnknownSession
	}
	return e, nil
}

// Bind persists playerID for sessionID and reconnects with it. An empty
// playerID clears the stored identity and drops back to spectating.
func (h *Hub) Bind(ctx context.Context, sessionID, playerID string) error {
	var err error
	if playerID == "" {
		err = h.store.Clear(ctx, sessionID)
	} else {
		err = h.store.Persist(ctx, sessionID, playerID)
	}
	if err != nil {
		return err
	}
	return h.ask(ctx, func(r chan error) HubMsg {
		return BindIdentity{SessionID: sessionID, PlayerID: playerID, Reply: r}
	})
}

func (h *Hub) Retry(ctx context.Context, sessionID string) error {
	return h.ask(ctx, func(r chan error) HubMsg { return Retry{SessionID: sessionID, Reply: r} })
}

func (h *Hub) Leave(ctx context.Context, sessionID string) error {
	return h.ask(ctx, func(r chan error) HubMsg { return LeaveSession{SessionID: sessionID, Reply: r} })
}

func (h *Hub) Shutdown(ctx context.Context) error {
	return h.ask(ctx, func(r chan error) HubMsg { return ShutdownHub{Reply: r} })
}

func (h *Hub) ask(ctx context.Context, build func(chan error) HubMsg) error {
	reply := make(chan error, 1)
	if err := h.request(ctx, build(reply)); err != nil {
		return err
	}
	err, waitErr := awaitReply(ctx, h, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

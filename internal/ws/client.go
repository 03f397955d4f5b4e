package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/ddz-client/internal/session"
	"github.com/DoyleJ11/ddz-client/internal/types"
)

var (
	ErrNotConnected   = errors.New("transport not connected")
	ErrSendBufferFull = errors.New("transport send buffer full")
)

const (
	defaultDialTimeout  = 10 * time.Second
	defaultWriteTimeout = 3 * time.Second
	defaultSendBuffer   = 16
	maxFrameSize        = 1 << 20
)

type Options struct {
	// BaseURL is the websocket origin, e.g. ws://localhost:8080.
	BaseURL      string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
	Logger       *zap.Logger
}

// Client keeps at most one live connection and reports everything that
// happens to it into a session inbox, tagged with the connection's
// generation id.
type Client struct {
	opts  Options
	inbox chan<- session.Msg
	log   *zap.Logger
	ctx   context.Context

	mu        sync.Mutex
	state     session.ConnState
	sessionID string
	playerID  string
	connID    string
	out       chan []byte
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewClient binds a transport to inbox. parent bounds the lifetime of every
// connection the client makes.
func NewClient(parent context.Context, opts Options, inbox chan<- session.Msg) *Client {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		opts:  opts,
		inbox: inbox,
		log:   log,
		ctx:   parent,
	}
}

// Connect dials sessionID as playerID (empty for a spectator). It is a no-op
// returning false when that pair is already connecting or connected; any
// other live connection is torn down first.
func (c *Client) Connect(ctx context.Context, sessionID, playerID string) bool {
	c.mu.Lock()
	if c.sessionID == sessionID && c.playerID == playerID &&
		(c.state == session.StateConnecting || c.state == session.StateConnected) {
		c.mu.Unlock()
		return false
	}

	prevCancel, prevDone := c.cancel, c.done

	connID := uuid.NewString()
	runCtx, cancel := context.WithCancel(c.ctx)
	out := make(chan []byte, c.opts.SendBuffer)
	done := make(chan struct{})

	c.state = session.StateConnecting
	c.sessionID = sessionID
	c.playerID = playerID
	c.connID = connID
	c.out = out
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		select {
		case <-prevDone:
		case <-ctx.Done():
		}
	}

	target := c.gameURL(sessionID, playerID)
	c.log.Info("dialing",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
		zap.String("conn_id", connID))

	c.emit(session.Dialing{ConnID: connID})
	go c.run(runCtx, connID, target, out, done)
	return true
}

func (c *Client) gameURL(sessionID, playerID string) string {
	u := strings.TrimRight(c.opts.BaseURL, "/") + "/ws/game/" + url.PathEscape(sessionID)
	if playerID != "" {
		u += "?playerId=" + url.QueryEscape(playerID)
	}
	return u
}

func (c *Client) run(ctx context.Context, connID, target string, out <-chan []byte, done chan<- struct{}) {
	defer close(done)

	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	conn, _, err := websocket.Dial(dialCtx, target, nil)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			c.emit(session.TransportError{ConnID: connID, Err: err})
		}
		c.finish(connID, int(websocket.StatusAbnormalClosure), err.Error())
		return
	}
	conn.SetReadLimit(maxFrameSize)

	c.mu.Lock()
	if c.connID == connID {
		c.state = session.StateConnected
	}
	c.mu.Unlock()
	c.emit(session.Opened{ConnID: connID})

	g, gctx := errgroup.WithContext(ctx)

	// Reader
	g.Go(func() error {
		for {
			_, data, err := conn.Read(gctx)
			if err != nil {
				return err
			}
			msg, err := types.Decode(data)
			if err != nil {
				c.log.Warn("dropping inbound frame", zap.String("conn_id", connID), zap.Error(err))
				continue
			}
			c.emit(session.FromServer{ConnID: connID, Msg: msg})
		}
	})

	// Writer
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case payload := <-out:
				wctx, cancel := context.WithTimeout(gctx, c.opts.WriteTimeout)
				err := conn.Write(wctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return err
				}
			}
		}
	})

	err = g.Wait()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")

	code := websocket.CloseStatus(err)
	reason := ""
	switch {
	case ctx.Err() != nil:
		code = websocket.StatusNormalClosure
	case code == -1:
		// Not a close frame, the connection broke.
		c.emit(session.TransportError{ConnID: connID, Err: err})
		code = websocket.StatusAbnormalClosure
		reason = err.Error()
	default:
		var ce websocket.CloseError
		if errors.As(err, &ce) {
			reason = ce.Reason
		}
	}
	c.finish(connID, int(code), reason)
}

func (c *Client) finish(connID string, code int, reason string) {
	c.mu.Lock()
	if c.connID == connID {
		c.state = session.StateClosed
		c.out = nil
	}
	c.mu.Unlock()

	c.log.Info("connection closed", zap.String("conn_id", connID), zap.Int("code", code), zap.String("reason", reason))
	c.emit(session.Closed{ConnID: connID, Code: code, Reason: reason})
}

func (c *Client) emit(m session.Msg) {
	select {
	case c.inbox <- m:
	case <-c.ctx.Done():
	}
}

// Send hands msg to the writer of the live connection. Nothing is queued for
// a later connection.
func (c *Client) Send(ctx context.Context, msg types.ClientMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	state, out := c.state, c.out
	c.mu.Unlock()

	if state != session.StateConnected || out == nil {
		c.log.Warn("send while not connected", zap.String("type", msg.Type), zap.Stringer("state", state))
		return ErrNotConnected
	}

	select {
	case out <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSendBufferFull
	}
}

// Close tears down the live connection, if any, and waits for it to finish.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done, c.out = nil, nil, nil
	c.state = session.StateClosed
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (c *Client) State() session.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnID is the generation id of the current connection attempt.
func (c *Client) ConnID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID
}

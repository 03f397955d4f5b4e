package session

import (
	"context"
)

// The helpers below post a message to the loop and wait for its answer. They
// are what handlers and the CLI use instead of touching the inbox directly.

func (s *Session) post(ctx context.Context, m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) ask(ctx context.Context, build func(reply chan error) Msg) error {
	reply := make(chan error, 1)
	if err := s.post(ctx, build(reply)); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) State(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := s.post(ctx, GetState{Reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.ctx.Done():
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Session) Toggle(ctx context.Context, index int) error {
	return s.ask(ctx, func(r chan error) Msg { return Toggle{Index: index, Reply: r} })
}

func (s *Session) ClearSelection(ctx context.Context) error {
	return s.post(ctx, ClearSelection{})
}

func (s *Session) Bid(ctx context.Context, value int) error {
	return s.ask(ctx, func(r chan error) Msg { return Bid{Value: value, Reply: r} })
}

func (s *Session) SelectLandlord(ctx context.Context, target string) error {
	return s.ask(ctx, func(r chan error) Msg { return SelectLandlord{Target: target, Reply: r} })
}

func (s *Session) Play(ctx context.Context) error {
	return s.ask(ctx, func(r chan error) Msg { return Play{Reply: r} })
}

func (s *Session) Pass(ctx context.Context) error {
	return s.ask(ctx, func(r chan error) Msg { return Pass{Reply: r} })
}

func (s *Session) DismissNotice(ctx context.Context) error {
	return s.post(ctx, DismissNotice{})
}

func (s *Session) Subscribe(ctx context.Context, clientID string, buf int) (<-chan Snapshot, error) {
	out := make(chan Snapshot, buf)
	if err := s.post(ctx, Subscribe{ClientID: clientID, Outbox: out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) Unsubscribe(ctx context.Context, clientID string) error {
	return s.post(ctx, Unsubscribe{ClientID: clientID})
}

package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/ddz-client/internal/identity"
	"github.com/DoyleJ11/ddz-client/internal/session"
	"github.com/DoyleJ11/ddz-client/internal/types"
)

type dial struct {
	SessionID string
	PlayerID  string
}

// fakeTransport records dials and reports them into the session the way the
// real transport does, without any network.
type fakeTransport struct {
	mu       sync.Mutex
	inbox    chan<- session.Msg
	dials    []dial
	live     *dial
	closed   int
	closeErr error
	gen      int
}

func (f *fakeTransport) Connect(_ context.Context, sessionID, playerID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := dial{SessionID: sessionID, PlayerID: playerID}
	if f.live != nil && *f.live == d {
		return false
	}
	f.dials = append(f.dials, d)
	f.live = &d
	f.gen++
	id := string(rune('a' + f.gen))
	f.inbox <- session.Dialing{ConnID: id}
	f.inbox <- session.Opened{ConnID: id}
	return true
}

func (f *fakeTransport) Send(context.Context, types.ClientMessage) error { return nil }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.live = nil
	return f.closeErr
}

func (f *fakeTransport) Dials() []dial {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dial(nil), f.dials...)
}

// drop simulates the server going away.
func (f *fakeTransport) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = nil
}

type fixture struct {
	hub        *Hub
	store      identity.Store
	mu         sync.Mutex
	transports []*fakeTransport
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{store: identity.NewMemoryStore()}
	f.hub = NewHub(ctx, f.store, func(inbox chan<- session.Msg) Transport {
		tr := &fakeTransport{inbox: inbox}
		f.mu.Lock()
		f.transports = append(f.transports, tr)
		f.mu.Unlock()
		return tr
	}, nil)
	return f
}

func (f *fixture) transport(i int) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transports[i]
}

func TestHub_Enter_Get_SameEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e1, err := f.hub.Enter(ctx, "s1")
	require.NoError(t, err)
	e2, err := f.hub.Enter(ctx, "s1")
	require.NoError(t, err)
	e3, err := f.hub.Get(ctx, "s1")
	require.NoError(t, err)

	if e1 == nil || e1 != e2 || e1 != e3 {
		t.Fatalf("expected same entry pointer")
	}
	assert.Len(t, f.transport(0).Dials(), 1)

	_, err = f.hub.Get(ctx, "nope")
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestHub_EnterUsesStoredIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Persist(ctx, "s1", "p7"))

	e, err := f.hub.Enter(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "p7", e.PlayerID)
	assert.Equal(t, []dial{{"s1", "p7"}}, f.transport(0).Dials())

	_, err = f.hub.Enter(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, []dial{{"s2", ""}}, f.transport(1).Dials(), "no identity means spectator")
}

func TestHub_BindReconnectsWithNewIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.hub.Enter(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, f.hub.Bind(ctx, "s1", "p2"))
	require.NoError(t, f.hub.Bind(ctx, "s1", "p2"))

	assert.Equal(t, []dial{{"s1", ""}, {"s1", "p2"}}, f.transport(0).Dials())

	id, ok, err := f.store.Resolve(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "p2", id)

	snap, err := e.Session.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p2", snap.PlayerID)

	require.NoError(t, f.hub.Bind(ctx, "s1", ""))
	_, ok, err = f.store.Resolve(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.ErrorIs(t, f.hub.Bind(ctx, "other", "p1"), ErrUnknownSession)
}

func TestHub_RetryOnlyRedialsWhenDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.hub.Enter(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, f.hub.Retry(ctx, "s1"))
	assert.Len(t, f.transport(0).Dials(), 1)

	f.transport(0).drop()
	require.NoError(t, f.hub.Retry(ctx, "s1"))
	assert.Len(t, f.transport(0).Dials(), 2)
}

func TestHub_LeaveClosesAndDiscards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.hub.Enter(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, f.hub.Leave(ctx, "s1"))
	assert.Equal(t, 1, f.transport(0).closed)

	select {
	case <-e.Session.Done():
	case <-time.After(time.Second):
		t.Fatalf("session loop kept running after leave")
	}

	_, err = f.hub.Get(ctx, "s1")
	require.ErrorIs(t, err, ErrUnknownSession)
	require.ErrorIs(t, f.hub.Leave(ctx, "s1"), ErrUnknownSession)
}

func TestHub_ShutdownAggregatesErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"s1", "s2"} {
		_, err := f.hub.Enter(ctx, id)
		require.NoError(t, err)
	}
	boom1, boom2 := errors.New("boom1"), errors.New("boom2")
	f.transport(0).closeErr = boom1
	f.transport(1).closeErr = boom2

	err := f.hub.Shutdown(ctx)
	require.ErrorIs(t, err, boom1)
	require.ErrorIs(t, err, boom2)

	_, err = f.hub.Enter(ctx, "s3")
	require.ErrorIs(t, err, ErrHubClosed)
}

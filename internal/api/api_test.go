package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	statsCalls atomic.Int32
	lastJoin   JoinRequest
	lastStart  string
}

func (f *fakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, LoginResponse{UserID: "u-" + body["username"], Username: body["username"], DisplayName: body["displayName"]})
	})
	r.Post("/api/games", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, CreateResponse{SessionID: "s1", GameID: "g1", JoinCode: "ABC123", CreatorToken: "tok"})
	})
	r.Post("/api/games/{id}/join", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&f.lastJoin)
		writeJSON(w, GameInfo{GameID: "g1", Phase: "LOBBY", PlayerCount: 3, YourPlayerID: "p1"})
	})
	r.Post("/api/games/{id}/start", func(w http.ResponseWriter, r *http.Request) {
		f.lastStart = r.URL.Query().Get("playerId")
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/games/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "missing" {
			http.Error(w, "no such game", http.StatusNotFound)
			return
		}
		writeJSON(w, GameInfo{GameID: "g1", Phase: "BIDDING"})
	})
	r.Get("/api/games/{id}/session-stats", func(w http.ResponseWriter, r *http.Request) {
		f.statsCalls.Add(1)
		writeJSON(w, []PlayerStats{{UserID: "u1", TotalPoints: 6, GamesPlayed: 2}})
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, ttl time.Duration) (*Client, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.routes())
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL, SummaryTTL: ttl})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, fb
}

func TestCreateAndJoin(t *testing.T) {
	c, fb := newTestClient(t, 0)
	ctx := context.Background()

	login, err := c.Login(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "u-alice", login.UserID)

	created, err := c.CreateSession(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "tok", created.CreatorToken)

	info, err := c.JoinSession(ctx, created.SessionID, JoinRequest{
		PlayerName:   "Alice",
		UserID:       login.UserID,
		SeatPosition: SeatPtr(0),
		CreatorToken: created.CreatorToken,
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", info.YourPlayerID)
	require.NotNil(t, fb.lastJoin.SeatPosition)
	assert.Equal(t, 0, *fb.lastJoin.SeatPosition)
	assert.Equal(t, "tok", fb.lastJoin.CreatorToken)

	require.NoError(t, c.StartRound(ctx, created.SessionID, "p1"))
	assert.Equal(t, "p1", fb.lastStart)
}

func TestValidation(t *testing.T) {
	c, _ := newTestClient(t, 0)
	ctx := context.Background()

	_, err := c.CreateSession(ctx, 2)
	require.ErrorIs(t, err, ErrInvalidPlayers)
	_, err = c.CreateSession(ctx, 13)
	require.ErrorIs(t, err, ErrInvalidPlayers)

	_, err = c.JoinSession(ctx, "s1", JoinRequest{SeatPosition: SeatPtr(7)})
	require.ErrorIs(t, err, ErrInvalidSeat)
	_, err = c.JoinSession(ctx, "", JoinRequest{})
	require.ErrorIs(t, err, ErrMissingSessionID)

	_, err = New(Options{BaseURL: "ftp://example.com"})
	require.Error(t, err)
}

func TestNotFound(t *testing.T) {
	c, _ := newTestClient(t, 0)
	_, err := c.SessionInfo(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "no such game", se.Body)
}

func TestSummaryIsCached(t *testing.T) {
	c, fb := newTestClient(t, time.Minute)
	ctx := context.Background()

	first, err := c.SessionSummary(ctx, "s1")
	require.NoError(t, err)
	second, err := c.SessionSummary(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), fb.statsCalls.Load())
}

func TestSummaryWithoutTTLAlwaysFetches(t *testing.T) {
	c, fb := newTestClient(t, 0)
	ctx := context.Background()

	_, err := c.SessionSummary(ctx, "s1")
	require.NoError(t, err)
	_, err = c.SessionSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), fb.statsCalls.Load())
}

func TestWebsocketBase(t *testing.T) {
	c, err := New(Options{BaseURL: "https://ddz.example.com/"})
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "wss://ddz.example.com", c.WebsocketBase())
}

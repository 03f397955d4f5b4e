package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ddz-client/internal/engine"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidPlayers   = errors.New("player count must be between 3 and 12")
	ErrInvalidSeat      = errors.New("seat position must be between 0 and 6")
	ErrMissingSessionID = errors.New("session id is required")
)

const (
	MinPlayers = 3
	MaxPlayers = 12
	MaxSeat    = 6
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

type LoginResponse struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type CreateResponse struct {
	SessionID    string `json:"sessionId"`
	GameID       string `json:"gameId"`
	JoinCode     string `json:"joinCode"`
	CreatorToken string `json:"creatorToken"`
}

type JoinRequest struct {
	PlayerName   string `json:"playerName"`
	UserID       string `json:"userId"`
	SeatPosition *int   `json:"seatPosition,omitempty"`
	CreatorToken string `json:"creatorToken,omitempty"`
}

type GameInfo struct {
	GameID       string               `json:"gameId"`
	JoinCode     string               `json:"joinCode,omitempty"`
	Phase        engine.Phase         `json:"phase"`
	PlayerCount  int                  `json:"playerCount"`
	CreatorID    string               `json:"creatorId,omitempty"`
	YourPlayerID string               `json:"yourPlayerId,omitempty"`
	Players      []engine.Participant `json:"players"`
}

type RestartResponse struct {
	SessionID   string `json:"sessionId"`
	GameID      string `json:"gameId"`
	RoundNumber int    `json:"roundNumber"`
}

// PlayerStats is one row of the cumulative leaderboard for a session.
type PlayerStats struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	TotalPoints  int    `json:"totalPoints"`
	LandlordWins int    `json:"landlordWins"`
	PeasantWins  int    `json:"peasantWins"`
	TotalWins    int    `json:"totalWins"`
	GamesPlayed  int    `json:"gamesPlayed"`
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	SummaryTTL time.Duration
	Logger     *zap.Logger
}

type Client struct {
	base       *url.URL
	http       *http.Client
	summaries  *ristretto.Cache
	summaryTTL time.Duration
	log        *zap.Logger
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("api: summary cache: %w", err)
	}

	return &Client{
		base:       base,
		http:       hc,
		summaries:  cache,
		summaryTTL: opts.SummaryTTL,
		log:        log,
	}, nil
}

// WebsocketBase is the ws:// or wss:// origin matching the REST base.
func (c *Client) WebsocketBase() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = ""
	return u.String()
}

func (c *Client) Login(ctx context.Context, username, displayName string) (LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"username": username, "displayName": displayName}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &out)
	return out, err
}

func (c *Client) CreateSession(ctx context.Context, playerCount int) (CreateResponse, error) {
	if playerCount < MinPlayers || playerCount > MaxPlayers {
		return CreateResponse{}, ErrInvalidPlayers
	}
	var out CreateResponse
	err := c.do(ctx, http.MethodPost, "/api/games", nil, map[string]int{"playerCount": playerCount}, &out)
	return out, err
}

func (c *Client) JoinSession(ctx context.Context, sessionID string, req JoinRequest) (GameInfo, error) {
	if sessionID == "" {
		return GameInfo{}, ErrMissingSessionID
	}
	if req.SeatPosition != nil && (*req.SeatPosition < 0 || *req.SeatPosition > MaxSeat) {
		return GameInfo{}, ErrInvalidSeat
	}
	var out GameInfo
	err := c.do(ctx, http.MethodPost, "/api/games/"+url.PathEscape(sessionID)+"/join", nil, req, &out)
	return out, err
}

func (c *Client) StartRound(ctx context.Context, sessionID, playerID string) error {
	if sessionID == "" {
		return ErrMissingSessionID
	}
	q := url.Values{"playerId": {playerID}}
	return c.do(ctx, http.MethodPost, "/api/games/"+url.PathEscape(sessionID)+"/start", q, nil, nil)
}

func (c *Client) RestartRound(ctx context.Context, sessionID string) (RestartResponse, error) {
	if sessionID == "" {
		return RestartResponse{}, ErrMissingSessionID
	}
	var out RestartResponse
	err := c.do(ctx, http.MethodPost, "/api/games/"+url.PathEscape(sessionID)+"/restart", nil, nil, &out)
	if err == nil {
		c.summaries.Del(sessionID)
	}
	return out, err
}

func (c *Client) SessionInfo(ctx context.Context, sessionID string) (GameInfo, error) {
	if sessionID == "" {
		return GameInfo{}, ErrMissingSessionID
	}
	var out GameInfo
	err := c.do(ctx, http.MethodGet, "/api/games/"+url.PathEscape(sessionID), nil, nil, &out)
	return out, err
}

// SessionSummary returns the leaderboard, served from cache for SummaryTTL.
func (c *Client) SessionSummary(ctx context.Context, sessionID string) ([]PlayerStats, error) {
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	if v, ok := c.summaries.Get(sessionID); ok {
		if stats, ok := v.([]PlayerStats); ok {
			return stats, nil
		}
	}

	var out []PlayerStats
	if err := c.do(ctx, http.MethodGet, "/api/games/"+url.PathEscape(sessionID)+"/session-stats", nil, nil, &out); err != nil {
		return nil, err
	}
	if c.summaryTTL > 0 {
		c.summaries.SetWithTTL(sessionID, out, 1, c.summaryTTL)
		c.summaries.Wait()
	}
	return out, nil
}

func (c *Client) Close() {
	c.summaries.Close()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// SeatPtr is a convenience for JoinRequest.SeatPosition.
func SeatPtr(seat int) *int {
	if seat < 0 {
		return nil
	}
	return &seat
}

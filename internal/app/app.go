package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ddz-client/internal/api"
	"github.com/DoyleJ11/ddz-client/internal/config"
	"github.com/DoyleJ11/ddz-client/internal/hub"
	"github.com/DoyleJ11/ddz-client/internal/identity"
	"github.com/DoyleJ11/ddz-client/internal/session"
	"github.com/DoyleJ11/ddz-client/internal/ws"
)

var ErrNoIdentity = errors.New("no stored identity for this session")

// App ties the REST collaborators, the identity store and the session hub
// together for the create/join/start flows.
type App struct {
	API   *api.Client
	Store identity.Store
	Hub   *hub.Hub
	log   *zap.Logger
}

type Joined struct {
	SessionID string
	PlayerID  string
	JoinCode  string
	Entry     *hub.Entry
}

func New(apiClient *api.Client, store identity.Store, h *hub.Hub, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{API: apiClient, Store: store, Hub: h, log: log}
}

// Build wires every collaborator from configuration.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	apiClient, err := api.New(api.Options{
		BaseURL:    cfg.ServerURL,
		SummaryTTL: cfg.SummaryTTL,
		Logger:     log.Named("api"),
	})
	if err != nil {
		return nil, err
	}

	store, err := identity.Open(ctx, cfg.Identity(), log.Named("identity"))
	if err != nil {
		apiClient.Close()
		return nil, err
	}

	dial := Transports(ctx, ws.Options{
		BaseURL:      apiClient.WebsocketBase(),
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Logger:       log.Named("ws"),
	})
	h := hub.NewHub(ctx, store, dial, log.Named("session"))
	return New(apiClient, store, h, log), nil
}

// Transports returns a factory producing one websocket client per session.
func Transports(parent context.Context, opts ws.Options) hub.TransportFactory {
	return func(inbox chan<- session.Msg) hub.Transport {
		return ws.NewClient(parent, opts, inbox)
	}
}

// Create logs in, creates a session for playerCount players and takes seat 0
// with the creator credential.
func (a *App) Create(ctx context.Context, name string, playerCount int) (Joined, error) {
	created, err := a.API.CreateSession(ctx, playerCount)
	if err != nil {
		return Joined{}, fmt.Errorf("create session: %w", err)
	}
	if err := a.Store.PersistCredential(ctx, created.SessionID, created.CreatorToken); err != nil {
		return Joined{}, err
	}
	a.log.Info("session created",
		zap.String("session_id", created.SessionID),
		zap.String("join_code", created.JoinCode),
		zap.Int("players", playerCount))

	j, err := a.Join(ctx, created.SessionID, name, 0)
	if err != nil {
		return Joined{}, err
	}
	j.JoinCode = created.JoinCode
	return j, nil
}

// Join takes a seat (seat < 0 lets the server choose), stores the returned
// identity and reconnects the session as that participant.
func (a *App) Join(ctx context.Context, sessionID, name string, seat int) (Joined, error) {
	user, err := a.API.Login(ctx, Username(name), name)
	if err != nil {
		return Joined{}, fmt.Errorf("login: %w", err)
	}

	token, hasToken, err := a.Store.Credential(ctx, sessionID)
	if err != nil {
		return Joined{}, err
	}

	info, err := a.API.JoinSession(ctx, sessionID, api.JoinRequest{
		PlayerName:   name,
		UserID:       user.UserID,
		SeatPosition: api.SeatPtr(seat),
		CreatorToken: token,
	})
	if err != nil {
		return Joined{}, fmt.Errorf("join session: %w", err)
	}
	if info.YourPlayerID == "" {
		return Joined{}, errors.New("join session: server returned no player id")
	}
	// Spent only once the server has accepted it.
	if hasToken {
		if err := a.Store.ClearCredential(ctx, sessionID); err != nil {
			return Joined{}, err
		}
	}

	if err := a.Store.Persist(ctx, sessionID, info.YourPlayerID); err != nil {
		return Joined{}, err
	}
	entry, err := a.Hub.Enter(ctx, sessionID)
	if err != nil {
		return Joined{}, err
	}
	// Already entered as a spectator: switch over.
	if err := a.Hub.Bind(ctx, sessionID, info.YourPlayerID); err != nil {
		return Joined{}, err
	}

	a.log.Info("joined session",
		zap.String("session_id", sessionID),
		zap.String("player_id", info.YourPlayerID))
	return Joined{SessionID: sessionID, PlayerID: info.YourPlayerID, JoinCode: info.JoinCode, Entry: entry}, nil
}

// Start begins the round. Only a seated participant may start it.
func (a *App) Start(ctx context.Context, sessionID string) error {
	playerID, ok, err := a.Store.Resolve(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoIdentity
	}
	return a.API.StartRound(ctx, sessionID, playerID)
}

func (a *App) Restart(ctx context.Context, sessionID string) (api.RestartResponse, error) {
	return a.API.RestartRound(ctx, sessionID)
}

func (a *App) Enter(ctx context.Context, sessionID string) (*hub.Entry, error) {
	return a.Hub.Enter(ctx, sessionID)
}

// Forget drops the stored identity. An entered session falls back to
// spectating.
func (a *App) Forget(ctx context.Context, sessionID string) error {
	err := a.Hub.Bind(ctx, sessionID, "")
	if errors.Is(err, hub.ErrUnknownSession) {
		return nil
	}
	return err
}

type Standing struct {
	api.PlayerStats
	Rank int `json:"rank"`
}

// Summary returns the session leaderboard ordered by points.
func (a *App) Summary(ctx context.Context, sessionID string) ([]Standing, error) {
	stats, err := a.API.SessionSummary(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Rank(stats), nil
}

func (a *App) Close(ctx context.Context) error {
	err := a.Hub.Shutdown(ctx)
	if errors.Is(err, hub.ErrHubClosed) {
		err = nil
	}
	err = multierr.Append(err, a.Store.Close())
	a.API.Close()
	return err
}

// Username derives the login name the server expects: lowercase letters and
// digits only.
func Username(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "player"
	}
	return b.String()
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/ddz-client/internal/api"
	"github.com/DoyleJ11/ddz-client/internal/app"
	"github.com/DoyleJ11/ddz-client/internal/gate"
	"github.com/DoyleJ11/ddz-client/internal/hub"
	"github.com/DoyleJ11/ddz-client/internal/session"
	"github.com/DoyleJ11/ddz-client/internal/ws"
)

var errBadRequest = errors.New("bad request")

type bidRequest struct {
	Value *int `json:"value"`
}

type selectLandlordRequest struct {
	Target string `json:"target"`
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func EnterSession(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := a.Enter(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		snap, err := e.Session.State(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	}
}

func LeaveSession(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.Hub.Leave(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func SessionState(a *app.App) http.HandlerFunc {
	return withSession(a, func(ctx context.Context, s *session.Session, r *http.Request) error {
		return nil
	})
}

func RetrySession(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.Hub.Retry(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// SessionInfo proxies the server's lobby details, which the stream never
// carries (join code, creator).
func SessionInfo(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := a.API.SessionInfo(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func SessionSummary(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		standings, err := a.Summary(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, standings)
	}
}

func ToggleCard(a *app.App) http.HandlerFunc {
	return withSession(a, func(ctx context.Context, s *session.Session, r *http.Request) error {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			return errBadRequest
		}
		return s.Toggle(ctx, index)
	})
}

func ClearSelection(a *app.App) http.HandlerFunc {
	return withSession(a, func(ctx context.Context, s *session.Session, r *http.Request) error {
		return s.ClearSelection(ctx)
	})
}

func DismissNotice(a *app.App) http.HandlerFunc {
	return withSession(a, func(ctx context.Context, s *session.Session, r *http.Request) error {
		return s.DismissNotice(ctx)
	})
}

func Bid(a *app.App) http.HandlerFunc {
	return withSession(a, func(ctx context.Context, s *session.Session, r *http.Request) error {
		var req bidRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
			return errBadRequest
		}
		return s.Bid(ctx, *req.Value)
	})
}

func SelectLandlord(a *app.App) http.HandlerFunc {
	return withSession(a, func(ctx context.Context, s *session.Session, r *http.Request) error {
		var req selectLandlordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Target == "" {
			return errBadRequest
		}
		return s.SelectLandlord(ctx, req.Target)
	})
}

func Play(a *app.App) http.HandlerFunc {
	return withSession(a, func(ctx context.Context, s *session.Session, r *http.Request) error {
		return s.Play(ctx)
	})
}

func Pass(a *app.App) http.HandlerFunc {
	return withSession(a, func(ctx context.Context, s *session.Session, r *http.Request) error {
		return s.Pass(ctx)
	})
}

// withSession looks up the entered session, runs fn and answers with the
// resulting snapshot.
func withSession(a *app.App, fn func(ctx context.Context, s *session.Session, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := a.Hub.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if err := fn(r.Context(), e.Session, r); err != nil {
			writeError(w, err)
			return
		}
		snap, err := e.Session.State(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// statusFor maps an error to the bridge's HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, gate.ErrBidOutOfRange),
		errors.Is(err, gate.ErrSelectionOutOfRange),
		errors.Is(err, gate.ErrUnknownParticipant):
		return http.StatusBadRequest
	case errors.Is(err, hub.ErrUnknownSession), errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gate.ErrNotSeated),
		errors.Is(err, gate.ErrNotConnected),
		errors.Is(err, gate.ErrStaleView),
		errors.Is(err, gate.ErrNotYourTurn),
		errors.Is(err, gate.ErrWrongPhase),
		errors.Is(err, gate.ErrEmptySelection),
		errors.Is(err, gate.ErrNotAwaitingSelection):
		return http.StatusConflict
	case errors.Is(err, ws.ErrNotConnected),
		errors.Is(err, ws.ErrSendBufferFull),
		errors.Is(err, session.ErrClosed),
		errors.Is(err, hub.ErrHubClosed):
		return http.StatusServiceUnavailable
	}
	var se *api.StatusError
	if errors.As(err, &se) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

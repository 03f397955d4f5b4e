package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ddz-client/internal/app"
	"github.com/DoyleJ11/ddz-client/internal/ws"
)

// SetupRoutes builds the local renderer bridge.
func SetupRoutes(a *app.App, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Post("/", EnterSession(a))
		r.Delete("/", LeaveSession(a))
		r.Get("/state", SessionState(a))
		r.Post("/retry", RetrySession(a))
		r.Get("/info", SessionInfo(a))
		r.Get("/summary", SessionSummary(a))

		r.Post("/selection/{index}", ToggleCard(a))
		r.Delete("/selection", ClearSelection(a))
		r.Delete("/notice", DismissNotice(a))

		r.Post("/actions/bid", Bid(a))
		r.Post("/actions/select-landlord", SelectLandlord(a))
		r.Post("/actions/play", Play(a))
		r.Post("/actions/pass", Pass(a))

		r.Get("/stream", ws.Handler(a.Hub, log.Named("stream")))
	})
	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/voluntr/volchat/internal/bus"
	"github.com/voluntr/volchat/internal/chat"
	"github.com/voluntr/volchat/internal/status"
	"github.com/voluntr/volchat/internal/store"
	"go.uber.org/zap"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Profile  string
	Identity chat.Identity
	DB       *store.DB
	Bus      *bus.Bus
	Machine  *status.Machine
	Logger   *zap.Logger
}

// NewRouter wires the daemon's HTTP routes.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	statusH := &StatusHandler{deps: d}
	convH := &ConversationHandler{deps: d}
	msgH := &MessageHandler{deps: d}
	contactH := &ContactHandler{deps: d}
	ingestH := &IngestHandler{deps: d}
	eventsH := NewEventsHandler(d)

	r.Route("/api", func(api chi.Router) {
		statusH.RegisterRoutes(api)
		convH.RegisterRoutes(api)
		msgH.RegisterRoutes(api)
		contactH.RegisterRoutes(api)
		ingestH.RegisterRoutes(api)
		eventsH.RegisterRoutes(api)
	})

	return r
}

// requireIdentity rejects requests on a profile nobody is logged into.
func requireIdentity(d Deps, w http.ResponseWriter) bool {
	if d.Identity.UserID == "" {
		respondError(w, http.StatusUnauthorized, "no identity configured for this profile")
		return false
	}
	return true
}

// Package server assembles the HTTP API: routes, middleware and health checks.
package server

import (
	"net/http"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/handlers"
	"github.com/diewo77/go-crm/internal/platform/logger"
	"github.com/diewo77/go-crm/internal/stats"
	"github.com/diewo77/go-crm/internal/store"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	Store    store.Backend
	Log      *logger.Logger
	Sessions *auth.Sessions
	// AuthRequired puts every /api route except health and login behind a session.
	AuthRequired bool
	// Now overrides the clock used by the statistics (tests).
	Now func() time.Time
}

// App is the root http.Handler.
type App struct {
	mux     *http.ServeMux
	deps    Deps
	handler http.Handler
}

func New(d Deps) *App {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	a := &App{mux: http.NewServeMux(), deps: d}
	a.setupRoutes()
	var h http.Handler = a.mux
	if d.Sessions != nil {
		h = d.Sessions.Middleware(h)
	}
	h = withRecover(d.Log, h)
	h = withLogging(d.Log, h)
	h = withRequestID(h)
	a.handler = otelhttp.NewHandler(h, "crm.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
	return a
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	d := a.deps
	agg := stats.New(d.Store, stats.WithClock(d.Now))

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /api/health", a.health)
	a.mux.HandleFunc("GET /api/healthz", a.healthz)

	if d.Sessions != nil {
		ah := handlers.NewAuthHandler(d.Store, d.Sessions, d.Log)
		a.mux.HandleFunc("POST /api/login", ah.Login)
		a.mux.HandleFunc("POST /api/logout", ah.Logout)
		a.mux.HandleFunc("GET /api/me", ah.Me)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// CRM routes
	// ─────────────────────────────────────────────────────────────────────────
	ch := handlers.NewClientHandler(d.Store, d.Log)
	a.mux.Handle("GET /api/clients", a.requireAuth(ch.List))
	a.mux.Handle("POST /api/clients", a.requireAuth(ch.Create))
	a.mux.Handle("GET /api/clients/{id}", a.requireAuth(ch.View))
	a.mux.Handle("PUT /api/clients/{id}", a.requireAuth(ch.Update))
	a.mux.Handle("DELETE /api/clients/{id}", a.requireAuth(ch.Delete))
	a.mux.Handle("GET /api/clients/{id}/quotes", a.requireAuth(ch.Quotes))

	qh := handlers.NewQuoteHandler(d.Store, d.Log)
	a.mux.Handle("GET /api/quotes", a.requireAuth(qh.List))
	a.mux.Handle("POST /api/quotes", a.requireAuth(qh.Create))
	a.mux.Handle("GET /api/quotes/{id}", a.requireAuth(qh.View))
	a.mux.Handle("PUT /api/quotes/{id}", a.requireAuth(qh.Update))
	a.mux.Handle("DELETE /api/quotes/{id}", a.requireAuth(qh.Delete))
	a.mux.Handle("GET /api/quotes/{id}/follow-ups", a.requireAuth(qh.FollowUps))
	a.mux.Handle("POST /api/quotes/{id}/follow-up", a.requireAuth(qh.AddFollowUp))

	sh := handlers.NewStatsHandler(agg, d.Log)
	a.mux.Handle("GET /api/statistics", a.requireAuth(sh.Statistics))
	a.mux.Handle("GET /api/statistics/follow-up-conversion", a.requireAuth(sh.FollowUpConversion))
	a.mux.Handle("GET /api/dashboard", a.requireAuth(sh.Dashboard))
	a.mux.Handle("GET /api/pending-follow-ups", a.requireAuth(sh.PendingFollowUps))

	a.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	})
}

func (a *App) requireAuth(h http.HandlerFunc) http.Handler {
	if !a.deps.AuthRequired || a.deps.Sessions == nil {
		return h
	}
	return a.deps.Sessions.RequireAuth(h)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// healthz also pings the backend and reports the collection sizes.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Store.Ping(r.Context()); err != nil {
		a.deps.Log.Warn("health check failed", "error", err)
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	counts, err := a.deps.Store.Counts(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok", "counts": counts})
}

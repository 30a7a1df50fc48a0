package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/julienschmidt/httprouter"

	"linkroute/internal/api/handlers"
	"linkroute/internal/api/middleware"
	"linkroute/internal/pkg/errors"
	"linkroute/internal/pkg/logger"
	"linkroute/internal/platform/auth"
	"linkroute/internal/platform/config"
	"linkroute/internal/platform/telemetry"
)

type Dependencies struct {
	LinkHandler      *handlers.LinkHandler
	RedirectHandler  *handlers.RedirectHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	AuditHandler     *handlers.AuditHandler
	HealthHandler    *handlers.HealthHandler
	MetricsHandler   *handlers.MetricsHandler
	AuthMiddleware   *middleware.AuthMiddleware
	RateLimit        config.RateLimitConfig
	ShortDomain      string
	TrustProxy       bool
}

// NewRouter serves the short domain with the redirect router and every other
// host with the management API. The API also exposes redirects under /r/.
// Forwarding headers are only honoured when TrustProxy is set.
func NewRouter(deps *Dependencies) http.Handler {
	redirects := newRedirectRouter(deps)

	var short http.Handler = redirects
	if deps.TrustProxy {
		short = chimw.RealIP(short)
	}
	short = logger.RequestLogger(short)

	return &hostSwitch{
		shortDomain: strings.ToLower(deps.ShortDomain),
		redirect:    telemetry.Instrument("/:alias", short),
		api:         NewAPIRouter(deps, redirects),
	}
}

func newRedirectRouter(deps *Dependencies) http.Handler {
	router := httprouter.New()
	router.GET("/:alias", deps.RedirectHandler.Redirect)
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Not found", nil)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error", nil)
	}

	return middleware.RateLimit(deps.RateLimit.RedirectPerMinute)(router)
}

func NewAPIRouter(deps *Dependencies, redirects http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(logger.RequestLogger, telemetry.Middleware)

	r.Get("/healthz", deps.HealthHandler.Check)
	r.Get("/metrics", deps.MetricsHandler.Export)

	authMid := deps.AuthMiddleware.Handle
	limits := middleware.ReadWriteRateLimit(deps.RateLimit.APIReadPerMinute, deps.RateLimit.APIWritePerMinute)

	r.Group(func(r chi.Router) {
		r.Use(limits)

		// public: redirect pipeline
		r.Get("/routing/options", deps.LinkHandler.Options)
		r.Get("/urls/{ref}", deps.LinkHandler.Get)
		r.Get("/urls/{ref}/qr", deps.LinkHandler.QRCode)
		r.Post("/urls/{ref}/evaluate-rules", deps.RedirectHandler.EvaluateRules)
		r.Post("/urls/{ref}/resolve", deps.RedirectHandler.Resolve)
		r.Post("/urls/{ref}/verify-password", deps.RedirectHandler.VerifyPassword)
		r.Post("/analytics/{ref}/click", deps.AnalyticsHandler.TrackClick)

		// owner
		r.Group(func(r chi.Router) {
			r.Use(authMid)
			r.Get("/urls", deps.LinkHandler.List)
			r.Post("/urls/shorten", deps.LinkHandler.Create)
			r.Post("/urls/validate-rules", deps.LinkHandler.ValidateRules)
			r.Put("/urls/{ref}", deps.LinkHandler.Update)
			r.Delete("/urls/{ref}", deps.LinkHandler.Delete)
			r.Get("/analytics/{ref}/clicks", deps.AnalyticsHandler.ListClicks)
			r.Get("/urls/{ref}/audit", deps.AuditHandler.List)
		})

		// moderation
		r.Group(func(r chi.Router) {
			r.Use(authMid, middleware.RequireRole(auth.RoleAdmin))
			r.Put("/admin/urls/{ref}/restriction", deps.LinkHandler.SetRestriction)
		})
	})

	r.Mount("/r", http.StripPrefix("/r", redirects))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusMethodNotAllowed, errors.ErrCodeInvalidInput, "Method not allowed", nil)
	})

	return r
}

type hostSwitch struct {
	shortDomain string
	redirect    http.Handler
	api         http.Handler
}

func (hs *hostSwitch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if hs.shortDomain != "" && strings.EqualFold(host, hs.shortDomain) {
		hs.redirect.ServeHTTP(w, r)
		return
	}
	hs.api.ServeHTTP(w, r)
}

// Package api exposes the Pandda engine as a JSON HTTP API.
//
// Routes are mounted under a base path on a gorilla/mux router. Every
// route but login needs an "Authorization: Bearer <token>" header issued
// by POST /auth/login; the token resolves to the pandda.Actor passed to
// the engine.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/observability"
)

// DefaultBasePath is where routes are mounted when no base path is set.
const DefaultBasePath = "/pandda"

// Handler serves the API for one engine.
type Handler struct {
	engine   *pandda.Engine
	tokens   *Tokens
	logger   *slog.Logger
	basePath string
	metrics  *observability.HTTPMetrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithBasePath sets the URL prefix for every route.
func WithBasePath(path string) Option {
	return func(h *Handler) { h.basePath = path }
}

// WithMetrics records request counts and latencies.
func WithMetrics(m *observability.HTTPMetrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// New creates a Handler.
func New(engine *pandda.Engine, tokens *Tokens, opts ...Option) *Handler {
	h := &Handler{
		engine:   engine,
		tokens:   tokens,
		logger:   slog.Default(),
		basePath: DefaultBasePath,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns a new router with every route registered.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.Register(r)
	return r
}

// Register mounts the routes on r under the base path.
func (h *Handler) Register(r *mux.Router) {
	base := r.PathPrefix(h.basePath).Subrouter()
	base.Use(h.requestID)
	if h.metrics != nil {
		base.Use(h.metrics.Middleware(routeTemplate))
	}
	base.Use(h.logRequests)

	base.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	api := base.NewRoute().Subrouter()
	api.Use(h.authenticate)

	api.HandleFunc("/me", h.me).Methods(http.MethodGet)

	// Customers
	api.HandleFunc("/customers", h.listCustomers).Methods(http.MethodGet)
	api.HandleFunc("/customers", h.createCustomer).Methods(http.MethodPost)
	api.HandleFunc("/customers/{id}", h.getCustomer).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}", h.replaceCustomer).Methods(http.MethodPut)
	api.HandleFunc("/customers/{id}", h.deleteCustomer).Methods(http.MethodDelete)
	api.HandleFunc("/customers/{id}/block", h.blockCustomer).Methods(http.MethodPost)
	api.HandleFunc("/customers/{id}/block", h.unblockCustomer).Methods(http.MethodDelete)

	// Subscriptions
	api.HandleFunc("/subscriptions/{id}", h.getSubscription).Methods(http.MethodGet)
	api.HandleFunc("/subscriptions/{id}", h.deleteSubscription).Methods(http.MethodDelete)
	api.HandleFunc("/subscriptions/{id}/renew", h.renewSubscription).Methods(http.MethodPost)

	// Catalog
	api.HandleFunc("/servers", h.listServers).Methods(http.MethodGet)
	api.HandleFunc("/servers", h.createServer).Methods(http.MethodPost)
	api.HandleFunc("/servers/{id}", h.updateServer).Methods(http.MethodPut)
	api.HandleFunc("/servers/{id}", h.deleteServer).Methods(http.MethodDelete)
	api.HandleFunc("/apps", h.listApps).Methods(http.MethodGet)
	api.HandleFunc("/apps", h.createApp).Methods(http.MethodPost)
	api.HandleFunc("/apps/{id}", h.updateApp).Methods(http.MethodPut)
	api.HandleFunc("/apps/{id}", h.deleteApp).Methods(http.MethodDelete)
	api.HandleFunc("/apps/{id}/duplicates", h.duplicateCredentials).Methods(http.MethodGet)
	api.HandleFunc("/plans", h.listPlans).Methods(http.MethodGet)
	api.HandleFunc("/plans", h.createPlan).Methods(http.MethodPost)
	api.HandleFunc("/plans/{id}", h.updatePlan).Methods(http.MethodPut)
	api.HandleFunc("/plans/{id}", h.deletePlan).Methods(http.MethodDelete)

	// Admins
	api.HandleFunc("/admins", h.listAdmins).Methods(http.MethodGet)
	api.HandleFunc("/admins", h.createAdmin).Methods(http.MethodPost)
	api.HandleFunc("/admins/{id}", h.deleteAdmin).Methods(http.MethodDelete)
	api.HandleFunc("/admins/{id}/master", h.setAdminMaster).Methods(http.MethodPut)
	api.HandleFunc("/admins/{id}/password", h.changeAdminPassword).Methods(http.MethodPut)

	// Audit
	api.HandleFunc("/activities", h.listActivities).Methods(http.MethodGet)
}

// routeTemplate labels a request by its matched route, falling back to
// the raw path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

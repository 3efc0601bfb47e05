package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splax/cornerstone/internal/service/auth"
	"github.com/splax/cornerstone/internal/service/calendar"
	"github.com/splax/cornerstone/internal/service/contact"
	"github.com/splax/cornerstone/internal/service/organisation"
	"github.com/splax/cornerstone/internal/service/profile"
	"github.com/splax/cornerstone/internal/service/recent"
	"github.com/splax/cornerstone/internal/service/task"
	"github.com/splax/cornerstone/internal/service/team"
	"github.com/splax/cornerstone/internal/service/timeline"
	"github.com/splax/cornerstone/internal/storage"
	"github.com/splax/cornerstone/internal/ws"
)

// Services bundles the application services the router exposes.
type Services struct {
	Auth          auth.Service
	Team          team.Service
	Organisations organisation.Service
	Contacts      contact.Service
	Tasks         task.Service
	Calendar      calendar.Service
	Timeline      timeline.Service
	Profiles      profile.Service
	Recent        recent.Service
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	svc      Services
	hub      *ws.Hub
	bucket   *storage.Bucket
	upgrader websocket.Upgrader
	limiter  RateLimiter
	dbHealth func(context.Context) error
	now      func() time.Time
	registry *prometheus.Registry
	metrics  *httpMetrics
}

const (
	healthCheckTimeout = 2 * time.Second
	sseHeartbeat       = 25 * time.Second
)

// NewRouter assembles routes with dependencies. hub carries session events to
// connected clients; bucket may be nil when uploads are disabled.
func NewRouter(logger *slog.Logger, svc Services, hub *ws.Hub, bucket *storage.Bucket, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
		svc:    svc,
		hub:    hub,
		bucket: bucket,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		dbHealth: dbHealth,
		now:      time.Now,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.registry = newRegistry()
	r.metrics = newHTTPMetrics(r.registry)
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	if r.registry != nil {
		r.mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	}

	r.mux.HandleFunc("/auth/signup", r.audit("/auth/signup", r.throttle(fixedClass(rateSignup), nil, r.handleSignup)))
	r.mux.HandleFunc("/auth/login", r.audit("/auth/login", r.throttle(fixedClass(rateLogin), nil, r.handleLogin)))
	r.mux.HandleFunc("/auth/refresh", r.audit("/auth/refresh", r.throttle(fixedClass(rateRefresh), nil, r.handleRefresh)))
	r.mux.HandleFunc("/auth/logout", r.audit("/auth/logout", r.userRoute(fixedClass(rateWrite), r.handleLogout)))
	r.mux.HandleFunc("/auth/session", r.audit("/auth/session", r.userRoute(fixedClass(rateRead), r.handleSession)))
	r.mux.HandleFunc("/auth/password", r.audit("/auth/password", r.userRoute(fixedClass(rateWrite), r.handlePassword)))
	r.mux.HandleFunc("/auth/events", r.audit("/auth/events", r.throttle(fixedClass(rateStream), nil, r.handleSessionEvents)))

	r.mux.HandleFunc("/teams", r.audit("/teams", r.userRoute(methodClass, r.handleTeams)))
	r.mux.HandleFunc("/teams/", r.audit("/teams/", r.userRoute(methodClass, r.handleTeamSubroutes)))

	r.mux.HandleFunc("/profile", r.audit("/profile", r.userRoute(methodClass, r.handleProfile)))
	r.mux.HandleFunc("/storage/avatars", r.audit("/storage/avatars", r.userRoute(fixedClass(rateUpload), r.handleAvatarUpload)))
	if r.bucket != nil {
		r.mux.Handle("/storage/", http.StripPrefix("/storage", r.bucket.Handler()))
	}

	r.mux.HandleFunc("/organisations", r.audit("/organisations", r.teamRoute(r.organisationResource().serveCollection)))
	r.mux.HandleFunc("/organisations/", r.audit("/organisations/", r.teamRoute(r.handleOrganisationSubroutes)))
	r.mux.HandleFunc("/contacts", r.audit("/contacts", r.teamRoute(r.contactResource().serveCollection)))
	r.mux.HandleFunc("/contacts/", r.audit("/contacts/", r.teamRoute(r.handleContactSubroutes)))
	r.mux.HandleFunc("/tasks", r.audit("/tasks", r.teamRoute(r.taskResource().serveCollection)))
	r.mux.HandleFunc("/tasks/", r.audit("/tasks/", r.teamRoute(r.handleTaskSubroutes)))
	r.mux.HandleFunc("/task-links/", r.audit("/task-links/", r.teamRoute(r.handleTaskLink)))
	r.mux.HandleFunc("/events", r.audit("/events", r.teamRoute(r.eventResource().serveCollection)))
	r.mux.HandleFunc("/events/", r.audit("/events/", r.teamRoute(r.handleEventSubroutes)))
	r.mux.HandleFunc("/organisation-updates/", r.audit("/organisation-updates/", r.teamRoute(r.handleOrganisationUpdate)))
	r.mux.HandleFunc("/recent-views", r.audit("/recent-views", r.teamRoute(r.handleRecentViews)))

	r.mux.HandleFunc("/reports/status", r.audit("/reports/status", r.teamRoute(r.handleStatusReport)))
	r.mux.HandleFunc("/reports/status.pdf", r.audit("/reports/status.pdf", r.teamRoute(r.handleStatusReportPDF)))
}

// teamRoute authenticates, rate limits and resolves the caller's team.
func (r *Router) teamRoute(next http.HandlerFunc) http.HandlerFunc {
	return r.userRoute(methodClass, r.requireTeam(next))
}

type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealthz reports 503 when the database ping fails so load balancers drain the node.
func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	status, code := "ok", http.StatusOK
	components := map[string]componentHealth{}
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		err := r.dbHealth(ctx)
		cancel()
		if err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
			components["database"] = componentHealth{Status: "down", Error: err.Error()}
		} else {
			components["database"] = componentHealth{Status: "up"}
		}
	}
	if r.hub != nil {
		components["session_events"] = componentHealth{Status: "up"}
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  r.now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

// pathID returns the single id segment after prefix, and the remainder split on "/".
func pathID(path, prefix string) (string, []string) {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return "", nil
	}
	parts := strings.Split(trimmed, "/")
	return parts[0], parts[1:]
}

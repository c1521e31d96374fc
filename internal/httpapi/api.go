package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"volunteerhub.org/api/spec"
	"volunteerhub.org/internal/activity"
	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/calendar"
	"volunteerhub.org/internal/documents"
	"volunteerhub.org/internal/mail"
	"volunteerhub.org/internal/obs"
	"volunteerhub.org/internal/tasks"
)

// ReadyProbe reports whether downstream dependencies are reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Auth      *auth.Service
	Store     auth.Store
	Tasks     *tasks.Service
	Calendar  *calendar.Service
	Documents *documents.Service
	Feed      *activity.Feed
	Mailer    mail.Mailer
	Ready     ReadyProbe
	Version   string

	// Login throttle. Zero values disable the limiter.
	LoginBurst     int
	LoginPerMinute int
}

// API is the HTTP layer.
type API struct {
	router    *mux.Router
	auth      *auth.Service
	store     auth.Store
	tasks     *tasks.Service
	calendar  *calendar.Service
	documents *documents.Service
	feed      *activity.Feed
	mailer    mail.Mailer
	ready     ReadyProbe
	version   string
}

func New(d Deps) *API {
	a := &API{
		router:    mux.NewRouter(),
		auth:      d.Auth,
		store:     d.Store,
		tasks:     d.Tasks,
		calendar:  d.Calendar,
		documents: d.Documents,
		feed:      d.Feed,
		mailer:    d.Mailer,
		ready:     d.Ready,
		version:   d.Version,
	}
	a.routes(d)
	return a
}

func (a *API) routes(d Deps) {
	r := a.router

	r.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/openapi.yaml", a.handleOpenAPI).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/v1/info", a.handleInfo).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Public auth endpoints.
	login := http.Handler(http.HandlerFunc(a.handleLogin))
	if d.LoginBurst > 0 && d.LoginPerMinute > 0 {
		login = RateLimit(login, d.LoginBurst, d.LoginPerMinute)
	}
	api.Handle("/auth/login", login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", a.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/check-email/{email}", a.handleCheckEmail).Methods(http.MethodGet)

	// Any authenticated identity.
	me := api.PathPrefix("/auth").Subrouter()
	me.Use(a.Authenticate)
	me.HandleFunc("/me", a.handleMe).Methods(http.MethodGet)
	me.HandleFunc("/profile", a.handleUpdateProfile).Methods(http.MethodPut)

	// Shared-password rotation, org admins and up.
	rotate := api.PathPrefix("/auth/change-org-password").Subrouter()
	rotate.Use(a.Authenticate, a.RequireNonprofitAdmin, a.ResolveOrganization, a.ValidateOrganizationAccess)
	rotate.HandleFunc("", a.handleChangeOrgPassword).Methods(http.MethodPost)

	// Organization-scoped resources, any member. Writes other than task
	// updates stay admin-only; task updates carry their own ownership
	// check for volunteers.
	scoped := api.NewRoute().Subrouter()
	scoped.Use(a.Authenticate, a.RequireVolunteer, a.ResolveOrganization, a.ValidateOrganizationAccess)
	adminOnly := func(h http.HandlerFunc) http.Handler { return a.RequireNonprofitAdmin(h) }
	scoped.HandleFunc("/tasks", a.handleListTasks).Methods(http.MethodGet)
	scoped.Handle("/tasks", adminOnly(a.handleCreateTask)).Methods(http.MethodPost)
	scoped.HandleFunc("/tasks/{id}", a.handleGetTask).Methods(http.MethodGet)
	scoped.HandleFunc("/tasks/{id}", a.handleUpdateTask).Methods(http.MethodPut)
	scoped.Handle("/tasks/{id}", adminOnly(a.handleDeleteTask)).Methods(http.MethodDelete)
	scoped.Handle("/tasks/{id}/assign", adminOnly(a.handleAssignTask)).Methods(http.MethodPost)
	scoped.HandleFunc("/calendar", a.handleListEvents).Methods(http.MethodGet)
	scoped.Handle("/calendar", adminOnly(a.handleCreateEvent)).Methods(http.MethodPost)
	scoped.HandleFunc("/calendar/{id}", a.handleGetEvent).Methods(http.MethodGet)
	scoped.Handle("/calendar/{id}", adminOnly(a.handleUpdateEvent)).Methods(http.MethodPut)
	scoped.Handle("/calendar/{id}", adminOnly(a.handleDeleteEvent)).Methods(http.MethodDelete)
	scoped.HandleFunc("/documents", a.handleListDocuments).Methods(http.MethodGet)
	scoped.Handle("/documents", adminOnly(a.handleCreateDocument)).Methods(http.MethodPost)
	scoped.Handle("/documents/{id}", adminOnly(a.handleDeleteDocument)).Methods(http.MethodDelete)
	scoped.HandleFunc("/activity/stream", a.handleActivityStream).Methods(http.MethodGet)

	// Organization administration, org admins and up.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(a.Authenticate, a.RequireNonprofitAdmin, a.ResolveOrganization, a.ValidateOrganizationAccess)
	admin.HandleFunc("/whitelist", a.handleListWhitelist).Methods(http.MethodGet)
	admin.HandleFunc("/whitelist", a.handleCreateWhitelist).Methods(http.MethodPost)
	admin.HandleFunc("/whitelist/{id}", a.handleGetWhitelist).Methods(http.MethodGet)
	admin.HandleFunc("/whitelist/{id}", a.handleUpdateWhitelist).Methods(http.MethodPatch)
	admin.HandleFunc("/whitelist/{id}", a.handleDeleteWhitelist).Methods(http.MethodDelete)
	admin.HandleFunc("/volunteers", a.handleListVolunteers).Methods(http.MethodGet)

	// Platform administration, super admins only.
	sa := api.PathPrefix("/super-admin").Subrouter()
	sa.Use(a.Authenticate, a.RequireSuperAdmin)
	sa.HandleFunc("/organizations", a.handleListOrganizations).Methods(http.MethodGet)
	sa.HandleFunc("/organizations", a.handleCreateOrganization).Methods(http.MethodPost)
	sa.HandleFunc("/organizations/{id}", a.handleGetOrganization).Methods(http.MethodGet)
	sa.HandleFunc("/organizations/{id}", a.handleUpdateOrganization).Methods(http.MethodPatch)
	sa.HandleFunc("/organizations/{id}", a.handleDeleteOrganization).Methods(http.MethodDelete)
	sa.HandleFunc("/organizations/{id}/reset-password", a.handleResetOrgPassword).Methods(http.MethodPost)
	sa.HandleFunc("/admins", a.handleListSuperAdmins).Methods(http.MethodGet)
	sa.HandleFunc("/admins", a.handleCreateSuperAdmin).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, codeNotFound, "no such endpoint")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, codeValidation, "method not allowed")
	})
}

// Handler wraps the router with the global middleware stack.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = obs.Instrument(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = Recover(h)
	h = RequestID(h)
	return h
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "volunteerhub-api",
		"version": a.version,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "volunteerhub-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

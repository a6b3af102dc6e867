// Package httpapi exposes the admin application over JSON HTTP. Every
// route's permission requirement is declared once in the route table; the
// handlers themselves never re-check access.
package httpapi

import (
	"context"
	"net/http"

	"osmadmin.org/internal/analytics"
	"osmadmin.org/internal/audit"
	"osmadmin.org/internal/auth"
	"osmadmin.org/internal/directory"
	"osmadmin.org/internal/history"
	"osmadmin.org/internal/obs"
	"osmadmin.org/internal/refdata"
	"osmadmin.org/internal/showroom"
)

// Pinger is the readiness probe dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// API bundles the domain services behind the HTTP surface.
type API struct {
	identities *auth.ContextBuilder
	directory  *directory.Service
	refdata    *refdata.Service
	showroom   *showroom.Service
	history    *history.Service
	analytics  *analytics.Service
	auditLog   audit.Store
	pinger     Pinger
	version    string
}

// Config carries the API's dependencies.
type Config struct {
	Identities *auth.ContextBuilder
	Directory  *directory.Service
	Refdata    *refdata.Service
	Showroom   *showroom.Service
	History    *history.Service
	Analytics  *analytics.Service
	AuditLog   audit.Store
	Pinger     Pinger
	Version    string
}

// New constructs the API.
func New(cfg Config) *API {
	return &API{
		identities: cfg.Identities,
		directory:  cfg.Directory,
		refdata:    cfg.Refdata,
		showroom:   cfg.Showroom,
		history:    cfg.History,
		analytics:  cfg.Analytics,
		auditLog:   cfg.AuditLog,
		pinger:     cfg.Pinger,
		version:    cfg.Version,
	}
}

// Handler builds the full middleware chain and route table.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	// Operational endpoints, outside auth.
	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("GET /readyz", a.handleReady)
	mux.HandleFunc("GET /v1/info", a.handleInfo)
	mux.Handle("GET /metrics", obs.Handler())

	// Public invitation flow and analytics ingest.
	mux.HandleFunc("GET /v1/invitations/validate", a.handleInvitationValidate)
	mux.HandleFunc("POST /v1/invitations/accept", a.handleInvitationAccept)
	mux.HandleFunc("POST /v1/analytics/events", a.handleAnalyticsIngest)

	// Caller profile.
	mux.HandleFunc("GET /v1/security/me", a.authenticated(a.handleMe))

	// Admin dashboard.
	mux.HandleFunc("GET /v1/admin/stats", a.protected("admin:stats", a.handleAdminStats))

	// Users.
	mux.HandleFunc("GET /v1/admin/users", a.protected("users:list", a.handleUserList))
	mux.HandleFunc("GET /v1/admin/users/{id}", a.protected("users:list", a.handleUserGet))
	mux.HandleFunc("PATCH /v1/admin/users/{id}", a.protected("users:update", a.handleUserUpdate))
	mux.HandleFunc("PUT /v1/admin/users/{id}/status", a.protected("users:update", a.handleUserStatus))
	mux.HandleFunc("PUT /v1/admin/users/{id}/roles", a.protected("users:update", a.handleUserRoles))

	// Invitations (admin side).
	mux.HandleFunc("GET /v1/admin/invitations", a.protected("users:invite", a.handleInvitationList))
	mux.HandleFunc("GET /v1/admin/invitations/{id}", a.protected("users:invite", a.handleInvitationGet))
	mux.HandleFunc("POST /v1/admin/invitations", a.protected("users:invite", a.handleInvitationCreate))
	mux.HandleFunc("POST /v1/admin/invitations/{id}/cancel", a.protected("users:invite", a.handleInvitationCancel))
	mux.HandleFunc("POST /v1/admin/invitations/{id}/resend", a.protected("users:invite", a.handleInvitationResend))

	// Roles.
	mux.HandleFunc("GET /v1/admin/roles", a.protected("roles:list", a.handleRoleList))
	mux.HandleFunc("GET /v1/admin/roles/{id}", a.protected("roles:list", a.handleRoleGet))
	mux.HandleFunc("POST /v1/admin/roles", a.protected("roles:create", a.handleRoleCreate))
	mux.HandleFunc("PATCH /v1/admin/roles/{id}", a.protected("roles:update", a.handleRoleUpdate))
	mux.HandleFunc("DELETE /v1/admin/roles/{id}", a.protected("roles:delete", a.handleRoleDelete))
	mux.HandleFunc("POST /v1/admin/roles/{id}/clone", a.protected("roles:create", a.handleRoleClone))
	mux.HandleFunc("GET /v1/admin/roles/{id}/users", a.protected("roles:list", a.handleRoleUsers))

	// Permissions.
	mux.HandleFunc("GET /v1/admin/permissions", a.protected("permissions:list", a.handlePermissionList))
	mux.HandleFunc("GET /v1/admin/permissions/{id}", a.protected("permissions:list", a.handlePermissionGet))
	mux.HandleFunc("POST /v1/admin/permissions", a.protected("permissions:create", a.handlePermissionCreate))
	mux.HandleFunc("PATCH /v1/admin/permissions/{id}", a.protected("permissions:update", a.handlePermissionUpdate))
	mux.HandleFunc("POST /v1/admin/permissions/{id}/deprecate", a.protected("permissions:update", a.handlePermissionDeprecate))

	// Reference entities, one registry for all twelve kinds.
	mux.HandleFunc("GET /v1/admin/entities/{kind}", a.protected("entities:list", a.handleEntityList))
	mux.HandleFunc("GET /v1/admin/entities/{kind}/{id}", a.protected("entities:list", a.handleEntityGet))
	mux.HandleFunc("POST /v1/admin/entities/{kind}", a.protected("entities:create", a.handleEntityCreate))
	mux.HandleFunc("PATCH /v1/admin/entities/{kind}/{id}", a.protected("entities:update", a.handleEntityUpdate))

	// Showroom curation.
	mux.HandleFunc("GET /v1/admin/showroom", a.protected("showroom:view", a.handleShowroomView))
	mux.HandleFunc("POST /v1/admin/showroom/featured", a.protected("showroom:manage", a.handleShowroomFeature))
	mux.HandleFunc("DELETE /v1/admin/showroom/featured/{modelId}", a.protected("showroom:manage", a.handleShowroomUnfeature))
	mux.HandleFunc("PUT /v1/admin/showroom/featured/order", a.protected("showroom:manage", a.handleShowroomReorder))
	mux.HandleFunc("GET /v1/admin/showroom/config", a.protected("showroom:view", a.handleShowroomConfigGet))
	mux.HandleFunc("PUT /v1/admin/showroom/config", a.protected("showroom:manage", a.handleShowroomConfigPut))

	// Audit log.
	mux.HandleFunc("GET /v1/admin/audit", a.protected("audit:list", a.handleAuditList))
	mux.HandleFunc("GET /v1/admin/audit/{id}", a.protected("audit:list", a.handleAuditGet))

	// Consultation history.
	mux.HandleFunc("GET /v1/historico", a.protected("historico:list", a.handleHistoryList))
	mux.HandleFunc("GET /v1/historico/grafico", a.protected("historico:list", a.handleHistoryChart))
	mux.HandleFunc("GET /v1/historico/{key}", a.protected("historico:list", a.handleHistoryGet))

	var handler http.Handler = mux
	handler = a.withAuth(handler)
	handler = MaxBodyBytes(handler, 1<<20)
	handler = RateLimit(handler, 50, 25)
	handler = CORS(handler)
	handler = SecurityHeaders(handler)
	handler = Logging(handler)
	handler = obs.Instrument(handler)
	return handler
}

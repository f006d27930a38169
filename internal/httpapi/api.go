// Package httpapi exposes the identity backend over HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"authline.org/internal/auditlog"
	"authline.org/internal/identity"
	"authline.org/internal/obs"
)

// IdentityService is the authentication surface consumed by the handlers.
type IdentityService interface {
	Login(ctx context.Context, email, password string) (identity.TokenPair, identity.Principal, error)
	Refresh(ctx context.Context, refreshToken string) (identity.TokenPair, identity.Principal, error)
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, current, next string) error
	SignUp(ctx context.Context, req identity.SignUpRequest) (*identity.User, error)
	Authenticate(ctx context.Context, accessToken string) (identity.Principal, error)
	CurrentUser(ctx context.Context) (identity.Principal, error)
	UpdateProfile(ctx context.Context, upd identity.ProfileUpdate) (*identity.User, error)
	AccessTTL() time.Duration
}

// AuditQuerier is the read side of the audit log.
type AuditQuerier interface {
	Query(ctx context.Context, q auditlog.Query) (auditlog.Page, error)
}

// ReadyProbe is a readiness check, typically a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	identity   IdentityService
	audit      AuditQuerier
	readyProbe ReadyProbe
	version    string

	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
}

func New(svc IdentityService, audit AuditQuerier, rp ReadyProbe, version string) *API {
	return &API{
		identity:     svc,
		audit:        audit,
		readyProbe:   rp,
		version:      version,
		rateBurst:    20,
		ratePerSec:   10,
		maxBodyBytes: 1 << 20,
	}
}

// SetLimits overrides the default rate and body-size limits.
func (a *API) SetLimits(burst, perSec int, maxBody int64) {
	if burst > 0 {
		a.rateBurst = burst
	}
	if perSec > 0 {
		a.ratePerSec = perSec
	}
	if maxBody > 0 {
		a.maxBodyBytes = maxBody
	}
}

// Handler builds the routed handler with the full middleware chain.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logging)
	r.Use(func(next http.Handler) http.Handler { return MaxBodyBytes(next, a.maxBodyBytes) })
	r.Use(func(next http.Handler) http.Handler { return RateLimit(next, a.rateBurst, a.ratePerSec) })
	r.Use(a.resolveSession)

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", a.handleLogin)
		r.Post("/token", a.handleRefreshToken)
		r.Post("/signup", a.handleSignUp)
		// Logout is idempotent and succeeds for anonymous callers too.
		r.Post("/logout", a.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/password/change", a.handleChangePassword)
			r.Get("/user", a.handleGetProfile)
			r.Post("/user", a.handleSaveProfile)
		})
	})

	r.Route("/sso", func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Get("/log", a.handleAuditQuery)
	})

	return obs.Instrument(r)
}

// Healthz reports liveness.
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authline-api",
		"version": a.version,
	})
}

// Ready reports readiness, including a DB ping when configured.
func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// Package http wires the service layer to the HTTP surface: routing,
// request decoding, envelope responses and the middleware chains.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pallidlabs/authgate/internal/auth/service"
	"github.com/pallidlabs/authgate/internal/auth/store"
	"github.com/pallidlabs/authgate/pkg/httpx"
	"github.com/pallidlabs/authgate/pkg/ratelimit"
	"github.com/pallidlabs/authgate/pkg/slogx"

	_ "github.com/pallidlabs/authgate/api" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     httpx.Verifier
	ledger       httpx.TokenLedger
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	AuthService *service.AuthService
	UserService *service.UserService
}

func NewRouter(
	verifier httpx.Verifier,
	ledger httpx.TokenLedger,
	limiter *ratelimit.Limiter,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		ledger:       ledger,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Every route passes through logging and the per-client throttle; the
	// auth group included, since it is the brute-force target.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.RateLimitMiddleware(limiter, nil),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Authgate API
//	@version		0.1.0
//	@description	Bearer-session credential service: signed token issuance and
//	@description	verification, a persisted revocation ledger, and per-client
//	@description	request throttling.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// registerAuth mounts the credential flows. No AuthnMiddleware here: these
// endpoints establish identity, they don't consume it. Refresh and logout
// read the bearer header themselves.
func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	r.Mux.Handle("POST /api/v1/auth/register", http.HandlerFunc(h.HandleRegister))
	r.Mux.Handle("POST /api/v1/auth/login", http.HandlerFunc(h.HandleLogin))
	r.Mux.Handle("POST /api/v1/auth/refresh-token", http.HandlerFunc(h.HandleRefresh))
	r.Mux.Handle("POST /api/v1/auth/logout", http.HandlerFunc(h.HandleLogout))
	r.Mux.Handle("POST /api/v1/auth/authorize", http.HandlerFunc(h.HandleAuthorize))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	authn := httpx.AuthnMiddleware(r.verifier, r.ledger)

	me := httpx.Chain(http.HandlerFunc(h.HandleMe), authn, httpx.RequireAuthenticated())
	updateMe := httpx.Chain(http.HandlerFunc(h.HandleUpdateMe), authn, httpx.RequireAuthenticated())
	r.Mux.Handle("GET /api/v1/users/me", me)
	r.Mux.Handle("PUT /api/v1/users/me", updateMe)

	admin := func(next http.Handler) http.Handler {
		return httpx.Chain(next, authn, httpx.RequireRole("admin"))
	}
	r.Mux.Handle("GET /api/v1/users", admin(http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("DELETE /api/v1/users/{username}", admin(http.HandlerFunc(h.HandleDelete)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}

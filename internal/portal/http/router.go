package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pointerhq/portal/internal/portal/service"
	"github.com/pointerhq/portal/internal/portal/store"
	"github.com/pointerhq/portal/pkg/httpx"
	"github.com/pointerhq/portal/pkg/jwtx"
	"github.com/pointerhq/portal/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.RemoteKeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store               store.Store
	UserService         *service.UserService
	AnnouncementService *service.AnnouncementService
}

func NewRouter(
	keys *jwtx.RemoteKeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerUsers()
	r.registerAnnouncements()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	adminOnly := []httpx.Middleware{
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyRole("admin"),
	}

	// User provisioning hits the identity provider; keep the limits tight.
	r.Mux.Handle("POST /usuarios",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			append(adminOnly, httpx.RateLimitByUser(httpx.ModerateLimit))...,
		),
	)

	r.Mux.Handle("GET /usuarios",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			append(adminOnly, httpx.RateLimitByUser(httpx.LenientLimit))...,
		),
	)

	r.Mux.Handle("POST /usuarios/alterar-status",
		httpx.Chain(http.HandlerFunc(h.HandleToggleStatus),
			append(adminOnly, httpx.RateLimitByUser(httpx.ModerateLimit))...,
		),
	)

	r.Mux.Handle("PUT /usuarios",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			append(adminOnly, httpx.RateLimitByUser(httpx.ModerateLimit))...,
		),
	)

	// Password endpoints are brute-forceable; strict limit by IP too.
	r.Mux.Handle("POST /usuarios/resetar-senha",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			append(adminOnly, httpx.RateLimitByIP(httpx.StrictLimit))...,
		),
	)

	r.Mux.Handle("POST /usuarios/senha",
		httpx.Chain(http.HandlerFunc(h.HandleUpdatePassword),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAnnouncements() {
	h := &AnnouncementsHandler{AnnouncementService: r.AnnouncementService}

	authenticated := httpx.AuthnMiddleware(r.verifier)
	adminOnly := []httpx.Middleware{
		authenticated,
		httpx.RequireAnyRole("admin"),
	}

	r.Mux.Handle("GET /api/comunicados",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			authenticated,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /api/comunicados/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			authenticated,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("POST /api/comunicados",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			append(adminOnly, httpx.RateLimitByUser(httpx.ModerateLimit))...,
		),
	)

	r.Mux.Handle("PUT /api/comunicados/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			append(adminOnly, httpx.RateLimitByUser(httpx.ModerateLimit))...,
		),
	)

	r.Mux.Handle("DELETE /api/comunicados/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			append(adminOnly, httpx.RateLimitByUser(httpx.ModerateLimit))...,
		),
	)

	r.Mux.Handle("POST /api/comunicados/{id}/leitura",
		httpx.Chain(http.HandlerFunc(h.HandleMarkRead),
			authenticated,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /api/comunicados/{id}/leituras",
		httpx.Chain(http.HandlerFunc(h.HandleListReaders),
			append(adminOnly, httpx.RateLimitByUser(httpx.LenientLimit))...,
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys))
}

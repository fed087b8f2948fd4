package api

import (
	"props-bible/api/routegroups"
	boardshttp "props-bible/boards/http"
	propshttp "props-bible/props/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) registerRoutes() {
	s.router.Use(s.recoverMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.securityHeadersMiddleware)

	h := s.newRouteHandlers()
	g := routegroups.Guards{
		WithSession:          s.withSession,
		RequirePermission:    s.requirePermission,
		RequireAnyPermission: s.requireAnyPermission,
		RateLimit:            s.rateLimitMiddleware,
	}

	apiRouter := chi.NewRouter()
	apiRouter.Use(s.jsonMiddleware)

	routegroups.RegisterAuth(apiRouter, g, h.auth)
	routegroups.RegisterAccounts(apiRouter, g, h.users)
	routegroups.RegisterRoles(apiRouter, g, h.roles)
	routegroups.RegisterLimits(apiRouter, g, h.subscription)
	routegroups.RegisterLogs(apiRouter, g, h.logs)
	routegroups.RegisterShows(apiRouter, g, routegroups.ShowHandlers{
		Shows:       h.shows,
		Packing:     h.packing,
		Shopping:    h.shopping,
		Invitations: h.invitations,
		Files:       h.files,
	})
	routegroups.RegisterFeedback(apiRouter, g, h.feedback)
	if s.deps.Props != nil {
		propshttp.RegisterRoutes(propshttp.RouteDeps{Router: apiRouter, WithSession: s.withSession, Handler: s.deps.Props})
	}
	if s.deps.Boards != nil {
		boardshttp.RegisterRoutes(boardshttp.RouteDeps{Router: apiRouter, WithSession: s.withSession, Handler: s.deps.Boards})
	}
	s.router.Mount("/api", apiRouter)
}

package routegroups

import (
	"net/http"

	"props-bible/core/jobroles"
)

type Guards struct {
	WithSession          func(http.HandlerFunc) http.HandlerFunc
	RequirePermission    func(jobroles.Action) func(http.HandlerFunc) http.HandlerFunc
	RequireAnyPermission func(...jobroles.Action) func(http.HandlerFunc) http.HandlerFunc
	RateLimit            func(http.HandlerFunc) http.HandlerFunc
}

func (g Guards) Session(handler http.HandlerFunc) http.HandlerFunc {
	return g.WithSession(handler)
}

func (g Guards) SessionPerm(perm jobroles.Action, handler http.HandlerFunc) http.HandlerFunc {
	return g.WithSession(g.RequirePermission(perm)(handler))
}

func (g Guards) SessionAnyPerm(perms []jobroles.Action, handler http.HandlerFunc) http.HandlerFunc {
	return g.WithSession(g.RequireAnyPermission(perms...)(handler))
}

func (g Guards) Limited(handler http.HandlerFunc) http.HandlerFunc {
	if g.RateLimit == nil {
		return handler
	}
	return g.RateLimit(handler)
}

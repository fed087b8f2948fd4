package routegroups

import (
	"props-bible/api/handlers"
	"props-bible/core/jobroles"

	"github.com/go-chi/chi/v5"
)

func RegisterAuth(apiRouter chi.Router, g Guards, h *handlers.AuthHandler) {
	apiRouter.MethodFunc("POST", "/auth/login", g.Limited(h.Login))
	apiRouter.MethodFunc("POST", "/auth/logout", g.Session(h.Logout))
	apiRouter.MethodFunc("GET", "/auth/me", g.Session(h.Me))
	apiRouter.MethodFunc("POST", "/auth/password", g.Session(h.ChangePassword))
}

func RegisterAccounts(apiRouter chi.Router, g Guards, h *handlers.UsersHandler) {
	apiRouter.Route("/accounts", func(accounts chi.Router) {
		accounts.MethodFunc("GET", "/users", g.SessionAnyPerm([]jobroles.Action{jobroles.ActionManageSettings, jobroles.ActionViewReports}, h.List))
		accounts.MethodFunc("POST", "/users", g.SessionPerm(jobroles.ActionManageSettings, h.Create))
		accounts.MethodFunc("PUT", "/users/{id}/roles", g.SessionPerm(jobroles.ActionAssignRoles, h.SetRoles))
		accounts.MethodFunc("PUT", "/users/{id}/plan", g.SessionPerm(jobroles.ActionManageSubscription, h.SetPlan))
		accounts.MethodFunc("PUT", "/users/{id}/active", g.SessionPerm(jobroles.ActionManageSettings, h.SetActive))
	})
}

// RegisterRoles serves the catalogue to every signed-in user; changes need manage_roles.
func RegisterRoles(apiRouter chi.Router, g Guards, h *handlers.RolesHandler) {
	apiRouter.Route("/roles", func(roles chi.Router) {
		roles.MethodFunc("GET", "/", g.Session(h.List))
		roles.MethodFunc("GET", "/hierarchy", g.Session(h.Hierarchy))
		roles.MethodFunc("GET", "/categories", g.Session(h.Categories))
		roles.MethodFunc("GET", "/matrix", g.Session(h.Matrix))
		roles.MethodFunc("GET", "/compare", g.Session(h.Compare))
		roles.MethodFunc("POST", "/validate", g.Session(h.Validate))
		roles.MethodFunc("POST", "/", g.SessionPerm(jobroles.ActionManageRoles, h.Create))
		roles.MethodFunc("GET", "/{role_id}", g.Session(h.Get))
		roles.MethodFunc("PUT", "/{role_id}", g.SessionPerm(jobroles.ActionManageRoles, h.Update))
		roles.MethodFunc("DELETE", "/{role_id}", g.SessionPerm(jobroles.ActionManageRoles, h.Delete))
	})
}

func RegisterLimits(apiRouter chi.Router, g Guards, h *handlers.SubscriptionHandler) {
	apiRouter.Route("/limits", func(limits chi.Router) {
		limits.MethodFunc("GET", "/plans", g.Session(h.Plans))
		limits.MethodFunc("GET", "/usage", g.Session(h.Usage))
		limits.MethodFunc("GET", "/check", g.Session(h.Check))
		limits.MethodFunc("POST", "/users/{id}/recount", g.SessionPerm(jobroles.ActionManageSubscription, h.Recount))
		limits.MethodFunc("GET", "/reconciler", g.SessionPerm(jobroles.ActionManageSubscription, h.ReconcilerStats))
	})
}

func RegisterLogs(apiRouter chi.Router, g Guards, h *handlers.LogsHandler) {
	apiRouter.MethodFunc("GET", "/logs", g.SessionPerm(jobroles.ActionManageSettings, h.List))
}

package api

import (
	"props-bible/api/handlers"
	"props-bible/props"
)

type routeHandlers struct {
	auth         *handlers.AuthHandler
	users        *handlers.UsersHandler
	roles        *handlers.RolesHandler
	subscription *handlers.SubscriptionHandler
	shows        *handlers.ShowsHandler
	packing      *handlers.PackingHandler
	shopping     *handlers.ShoppingHandler
	invitations  *handlers.InvitationsHandler
	feedback     *handlers.FeedbackHandler
	files        *handlers.FilesHandler
	logs         *handlers.LogsHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	d := s.deps
	var propsStore props.Store
	if d.PropsService != nil {
		propsStore = d.PropsService.Store()
	}
	return routeHandlers{
		auth:         handlers.NewAuthHandler(s.cfg, d.Users, d.SessionManager, d.Policy, d.Audits, s.logger),
		users:        handlers.NewUsersHandler(s.cfg, d.Users, d.Sessions, d.Roles, d.Policy, d.Audits, s.logger),
		roles:        handlers.NewRolesHandler(d.Roles, d.Users, d.Policy, d.Audits, s.logger),
		subscription: handlers.NewSubscriptionHandler(d.Limits, d.Reconciler, d.Users, d.Shows, d.Policy, d.Audits, s.logger),
		shows:        handlers.NewShowsHandler(s.cfg, d.Users, d.Shows, d.Roles, d.Policy, d.Limits, d.Objects, d.PropsService, d.Audits, s.logger),
		packing:      handlers.NewPackingHandler(d.Users, d.Shows, d.Packing, propsStore, d.Policy, d.Limits, d.Audits, s.logger),
		shopping:     handlers.NewShoppingHandler(d.Users, d.Shows, d.Shopping, d.Policy, d.Audits, s.logger),
		invitations:  handlers.NewInvitationsHandler(d.Invites, d.Users, d.Shows, d.Policy, d.Audits, s.logger),
		feedback:     handlers.NewFeedbackHandler(s.cfg, d.Feedback, d.Objects, d.Audits, s.logger),
		files:        handlers.NewFilesHandler(d.Users, d.Shows, d.Policy, d.Objects, s.logger),
		logs:         handlers.NewLogsHandler(d.Audits),
	}
}

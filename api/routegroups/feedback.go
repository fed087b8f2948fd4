package routegroups

import (
	"props-bible/api/handlers"
	"props-bible/core/jobroles"

	"github.com/go-chi/chi/v5"
)

func RegisterFeedback(apiRouter chi.Router, g Guards, h *handlers.FeedbackHandler) {
	apiRouter.Route("/feedback", func(fb chi.Router) {
		fb.MethodFunc("POST", "/", g.Session(h.Submit))
		fb.MethodFunc("GET", "/", g.SessionPerm(jobroles.ActionViewFeedback, h.List))
		fb.MethodFunc("PUT", "/{id}/status", g.SessionPerm(jobroles.ActionViewFeedback, h.SetStatus))
		fb.MethodFunc("GET", "/{id}/screenshot", g.SessionPerm(jobroles.ActionViewFeedback, h.Screenshot))
	})
}

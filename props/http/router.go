package propshttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type RouteDeps struct {
	Router      chi.Router
	WithSession func(http.HandlerFunc) http.HandlerFunc
	Handler     *Handler
}

// RegisterRoutes mounts the inventory under /shows/{show_id}/props. Permission checks are
// show-scoped and happen inside the handlers.
func RegisterRoutes(deps RouteDeps) {
	h := deps.Handler
	withSession := deps.WithSession
	deps.Router.Route("/shows/{show_id}/props", func(r chi.Router) {
		r.Get("/", withSession(h.ListProps))
		r.Post("/", withSession(h.CreateProp))
		r.Get("/categories", withSession(h.Categories))
		r.Get("/summary", withSession(h.Summary))
		r.Get("/export.csv", withSession(h.Export))
		r.Get("/{id}", withSession(h.GetProp))
		r.Put("/{id}", withSession(h.UpdateProp))
		r.Delete("/{id}", withSession(h.DeleteProp))
		r.Post("/{id}/status", withSession(h.ChangeStatus))
		r.Get("/{id}/history", withSession(h.History))
		r.Post("/{id}/images", withSession(h.UploadImage))
		r.Delete("/{id}/images", withSession(h.DeleteImage))
		r.Post("/{id}/images/main", withSession(h.SetMainImage))
		r.Get("/{id}/label.png", withSession(h.Label))
	})
}

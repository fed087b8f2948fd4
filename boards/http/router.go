package boardshttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type RouteDeps struct {
	Router      chi.Router
	WithSession func(http.HandlerFunc) http.HandlerFunc
	Handler     *Handler
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func RegisterRoutes(deps RouteDeps) {
	h := deps.Handler
	withSession := deps.WithSession
	r := deps.Router

	r.Get("/boards", withSession(h.ListBoards))
	r.Post("/boards", withSession(h.CreateBoard))
	r.Get("/boards/{id}", withSession(h.GetBoard))
	r.Put("/boards/{id}", withSession(h.UpdateBoard))
	r.Delete("/boards/{id}", withSession(h.DeleteBoard))
	r.Post("/boards/{id}/move", withSession(h.MoveBoard))
	r.Post("/boards/{id}/lists", withSession(h.CreateList))

	r.Put("/board-lists/{id}", withSession(h.RenameList))
	r.Post("/board-lists/{id}/move", withSession(h.MoveList))
	r.Delete("/board-lists/{id}", withSession(h.DeleteList))
	r.Post("/board-lists/{id}/cards", withSession(h.CreateCard))

	r.Put("/board-cards/{id}", withSession(h.UpdateCard))
	r.Post("/board-cards/{id}/move", withSession(h.MoveCard))
	r.Post("/board-cards/{id}/complete", withSession(h.CompleteCard))
	r.Post("/board-cards/{id}/reopen", withSession(h.ReopenCard))
	r.Delete("/board-cards/{id}", withSession(h.DeleteCard))
}

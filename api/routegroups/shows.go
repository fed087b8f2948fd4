package routegroups

import (
	"props-bible/api/handlers"

	"github.com/go-chi/chi/v5"
)

type ShowHandlers struct {
	Shows       *handlers.ShowsHandler
	Packing     *handlers.PackingHandler
	Shopping    *handlers.ShoppingHandler
	Invitations *handlers.InvitationsHandler
	Files       *handlers.FilesHandler
}

// RegisterShows mounts flat patterns so the props sub-router under
// /shows/{show_id}/props can share the prefix. Show-scoped permissions are
// resolved per request by the handlers.
func RegisterShows(apiRouter chi.Router, g Guards, h ShowHandlers) {
	s := h.Shows
	apiRouter.MethodFunc("GET", "/shows", g.Session(s.List))
	apiRouter.MethodFunc("POST", "/shows", g.Session(s.Create))
	apiRouter.MethodFunc("GET", "/shows/{show_id}", g.Session(s.Get))
	apiRouter.MethodFunc("PUT", "/shows/{show_id}", g.Session(s.Update))
	apiRouter.MethodFunc("DELETE", "/shows/{show_id}", g.Session(s.Delete))
	apiRouter.MethodFunc("POST", "/shows/{show_id}/archive", g.Session(s.Archive))
	apiRouter.MethodFunc("POST", "/shows/{show_id}/unarchive", g.Session(s.Unarchive))
	apiRouter.MethodFunc("PUT", "/shows/{show_id}/acts", g.Session(s.SetActs))
	apiRouter.MethodFunc("POST", "/shows/{show_id}/logo", g.Session(s.UploadLogo))
	apiRouter.MethodFunc("GET", "/shows/{show_id}/team", g.Session(s.Team))
	apiRouter.MethodFunc("POST", "/shows/{show_id}/team", g.Session(s.AddMember))
	apiRouter.MethodFunc("PUT", "/shows/{show_id}/team/{user_id}", g.Session(s.UpdateMemberRole))
	apiRouter.MethodFunc("DELETE", "/shows/{show_id}/team/{user_id}", g.Session(s.RemoveMember))

	p := h.Packing
	apiRouter.MethodFunc("GET", "/shows/{show_id}/packing", g.Session(p.List))
	apiRouter.MethodFunc("POST", "/shows/{show_id}/packing", g.Session(p.Create))
	apiRouter.MethodFunc("GET", "/shows/{show_id}/packing/{list_id}", g.Session(p.Get))
	apiRouter.MethodFunc("PUT", "/shows/{show_id}/packing/{list_id}", g.Session(p.Update))
	apiRouter.MethodFunc("DELETE", "/shows/{show_id}/packing/{list_id}", g.Session(p.Delete))
	apiRouter.MethodFunc("POST", "/shows/{show_id}/packing/{list_id}/containers", g.Session(p.CreateContainer))
	apiRouter.MethodFunc("PUT", "/shows/{show_id}/packing/{list_id}/containers/{container_id}", g.Session(p.UpdateContainer))
	apiRouter.MethodFunc("DELETE", "/shows/{show_id}/packing/{list_id}/containers/{container_id}", g.Session(p.DeleteContainer))
	apiRouter.MethodFunc("PUT", "/shows/{show_id}/packing/{list_id}/containers/{container_id}/props/{prop_id}", g.Session(p.PutProp))
	apiRouter.MethodFunc("DELETE", "/shows/{show_id}/packing/{list_id}/containers/{container_id}/props/{prop_id}", g.Session(p.RemoveProp))

	sh := h.Shopping
	apiRouter.MethodFunc("GET", "/shows/{show_id}/shopping", g.Session(sh.List))
	apiRouter.MethodFunc("POST", "/shows/{show_id}/shopping", g.Session(sh.Create))
	apiRouter.MethodFunc("GET", "/shows/{show_id}/shopping/{item_id}", g.Session(sh.Get))
	apiRouter.MethodFunc("PUT", "/shows/{show_id}/shopping/{item_id}", g.Session(sh.Update))
	apiRouter.MethodFunc("DELETE", "/shows/{show_id}/shopping/{item_id}", g.Session(sh.Delete))
	apiRouter.MethodFunc("POST", "/shows/{show_id}/shopping/{item_id}/status", g.Session(sh.SetStatus))
	apiRouter.MethodFunc("POST", "/shows/{show_id}/shopping/{item_id}/options", g.Session(sh.AddOption))
	apiRouter.MethodFunc("POST", "/shows/{show_id}/shopping/{item_id}/options/{option_id}/select", g.Session(sh.SelectOption))

	inv := h.Invitations
	apiRouter.MethodFunc("GET", "/shows/{show_id}/invitations", g.Session(inv.List))
	apiRouter.MethodFunc("POST", "/shows/{show_id}/invitations", g.Session(inv.Create))
	apiRouter.MethodFunc("DELETE", "/shows/{show_id}/invitations/{invitation_id}", g.Session(inv.Revoke))
	apiRouter.MethodFunc("POST", "/invitations/accept", g.Session(inv.Accept))

	apiRouter.MethodFunc("GET", "/shows/{show_id}/files/*", g.Session(h.Files.Serve))
}

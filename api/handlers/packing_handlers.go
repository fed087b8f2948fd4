package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"
	"props-bible/props"
)

type PackingHandler struct {
	packing store.PackingStore
	props   props.Store
	limits  *subscription.Service
	audits  store.AuditStore
	logger  *utils.Logger
	scope   showScope
}

func NewPackingHandler(users store.UsersStore, shows store.ShowsStore, packing store.PackingStore, propsStore props.Store,
	policy *rbac.Policy, limits *subscription.Service, audits store.AuditStore, logger *utils.Logger) *PackingHandler {
	return &PackingHandler{
		packing: packing, props: propsStore, limits: limits, audits: audits, logger: logger,
		scope: showScope{users: users, shows: shows, policy: policy},
	}
}

type packListPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type containerPayload struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	MaxWeightKg float64 `json:"max_weight_kg"`
	Location    string  `json:"location"`
	Notes       string  `json:"notes"`
}

func (p containerPayload) apply(c *store.PackContainer) error {
	c.Name = strings.TrimSpace(p.Name)
	if c.Name == "" {
		return errors.New("packing.nameRequired")
	}
	if p.MaxWeightKg < 0 {
		return errors.New("packing.badWeight")
	}
	c.Kind = strings.TrimSpace(p.Kind)
	c.MaxWeightKg = p.MaxWeightKg
	c.Location = strings.TrimSpace(p.Location)
	c.Notes = strings.TrimSpace(p.Notes)
	return nil
}

// loadList returns the pack list named in the path if it belongs to the show.
func (h *PackingHandler) loadList(w http.ResponseWriter, r *http.Request, acc *auth.ShowAccess) (*store.PackList, bool) {
	pl, err := h.packing.Get(r.Context(), pathID(r, "list_id"))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return nil, false
	}
	if pl == nil || pl.ShowID != acc.Show.ID {
		http.Error(w, "packing.notFound", http.StatusNotFound)
		return nil, false
	}
	return pl, true
}

func (h *PackingHandler) loadContainer(w http.ResponseWriter, r *http.Request, pl *store.PackList) (*store.PackContainer, bool) {
	c, err := h.packing.GetContainer(r.Context(), pathID(r, "container_id"))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return nil, false
	}
	if c == nil || c.PackListID != pl.ID {
		http.Error(w, "packing.containerNotFound", http.StatusNotFound)
		return nil, false
	}
	return c, true
}

func notFoundOr500(w http.ResponseWriter, err error, key string) {
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, key, http.StatusNotFound)
		return
	}
	http.Error(w, "server error", http.StatusInternalServerError)
}

func (h *PackingHandler) List(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := h.scope.require(w, r, jobroles.ActionViewPackingLists)
	if !ok {
		return
	}
	items, err := h.packing.ListByShow(r.Context(), acc.Show.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *PackingHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := h.scope.require(w, r, jobroles.ActionViewPackingLists)
	if !ok {
		return
	}
	pl, ok := h.loadList(w, r, acc)
	if !ok {
		return
	}
	full, err := h.packing.GetWithContents(r.Context(), pl.ID)
	if err != nil || full == nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, full)
}

func (h *PackingHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionCreatePackingLists)
	if !ok {
		return
	}
	var payload packListPayload
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		http.Error(w, "packing.nameRequired", http.StatusBadRequest)
		return
	}
	show := acc.Show
	if _, err := h.limits.Acquire(r.Context(), show.OwnerID, subscription.ResourcePackingLists, 0); err != nil {
		if writeLimitError(w, err) {
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	pl := &store.PackList{ShowID: show.ID, OwnerID: show.OwnerID, Name: name, Description: strings.TrimSpace(payload.Description), CreatedBy: user.ID}
	if _, err := h.packing.Create(r.Context(), pl); err != nil {
		h.limits.ReleaseQuiet(r.Context(), show.OwnerID, subscription.ResourcePackingLists, 0)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	pl.Containers = []store.PackContainer{}
	_ = h.audits.Log(r.Context(), user.Username, "packing.create", fmt.Sprintf("show=%d list=%d", show.ID, pl.ID))
	writeJSON(w, http.StatusCreated, pl)
}

func (h *PackingHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionEditPackingLists)
	if !ok {
		return
	}
	pl, ok := h.loadList(w, r, acc)
	if !ok {
		return
	}
	var payload packListPayload
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	pl.Name = strings.TrimSpace(payload.Name)
	if pl.Name == "" {
		http.Error(w, "packing.nameRequired", http.StatusBadRequest)
		return
	}
	pl.Description = strings.TrimSpace(payload.Description)
	if err := h.packing.Update(r.Context(), pl); err != nil {
		notFoundOr500(w, err, "packing.notFound")
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "packing.update", fmt.Sprintf("list=%d", pl.ID))
	writeJSON(w, http.StatusOK, pl)
}

func (h *PackingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionDeletePackingLists)
	if !ok {
		return
	}
	pl, ok := h.loadList(w, r, acc)
	if !ok {
		return
	}
	if err := h.packing.Delete(r.Context(), pl.ID); err != nil {
		notFoundOr500(w, err, "packing.notFound")
		return
	}
	h.limits.ReleaseQuiet(r.Context(), pl.OwnerID, subscription.ResourcePackingLists, 0)
	_ = h.audits.Log(r.Context(), user.Username, "packing.delete", fmt.Sprintf("list=%d", pl.ID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *PackingHandler) CreateContainer(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionEditPackingLists)
	if !ok {
		return
	}
	pl, ok := h.loadList(w, r, acc)
	if !ok {
		return
	}
	var payload containerPayload
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	c := &store.PackContainer{PackListID: pl.ID}
	if err := payload.apply(c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.packing.CreateContainer(r.Context(), c); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "packing.container_create", fmt.Sprintf("list=%d container=%d", pl.ID, c.ID))
	writeJSON(w, http.StatusCreated, c)
}

func (h *PackingHandler) UpdateContainer(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionEditPackingLists)
	if !ok {
		return
	}
	pl, ok := h.loadList(w, r, acc)
	if !ok {
		return
	}
	c, ok := h.loadContainer(w, r, pl)
	if !ok {
		return
	}
	var payload containerPayload
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := payload.apply(c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.packing.UpdateContainer(r.Context(), c); err != nil {
		notFoundOr500(w, err, "packing.containerNotFound")
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "packing.container_update", fmt.Sprintf("container=%d", c.ID))
	writeJSON(w, http.StatusOK, c)
}

func (h *PackingHandler) DeleteContainer(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionEditPackingLists)
	if !ok {
		return
	}
	pl, ok := h.loadList(w, r, acc)
	if !ok {
		return
	}
	c, ok := h.loadContainer(w, r, pl)
	if !ok {
		return
	}
	if err := h.packing.DeleteContainer(r.Context(), c.ID); err != nil {
		notFoundOr500(w, err, "packing.containerNotFound")
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "packing.container_delete", fmt.Sprintf("container=%d", c.ID))
	w.WriteHeader(http.StatusNoContent)
}

// PutProp packs a prop of the same show into the container.
func (h *PackingHandler) PutProp(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionEditPackingLists)
	if !ok {
		return
	}
	pl, ok := h.loadList(w, r, acc)
	if !ok {
		return
	}
	c, ok := h.loadContainer(w, r, pl)
	if !ok {
		return
	}
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}
	if payload.Quantity < 0 {
		http.Error(w, "packing.badQuantity", http.StatusBadRequest)
		return
	}
	p, err := h.props.Get(r.Context(), pathID(r, "prop_id"))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if p == nil || p.ShowID != acc.Show.ID {
		http.Error(w, "props.notFound", http.StatusNotFound)
		return
	}
	if err := h.packing.PutProp(r.Context(), c.ID, p.ID, payload.Quantity); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "packing.prop_put", fmt.Sprintf("container=%d prop=%d qty=%d", c.ID, p.ID, payload.Quantity))
	full, err := h.packing.GetWithContents(r.Context(), pl.ID)
	if err != nil || full == nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, full)
}

func (h *PackingHandler) RemoveProp(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionEditPackingLists)
	if !ok {
		return
	}
	pl, ok := h.loadList(w, r, acc)
	if !ok {
		return
	}
	c, ok := h.loadContainer(w, r, pl)
	if !ok {
		return
	}
	propID := pathID(r, "prop_id")
	if err := h.packing.RemoveProp(r.Context(), c.ID, propID); err != nil {
		notFoundOr500(w, err, "packing.propNotPacked")
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "packing.prop_remove", fmt.Sprintf("container=%d prop=%d", c.ID, propID))
	w.WriteHeader(http.StatusNoContent)
}

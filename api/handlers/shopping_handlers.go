package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/utils"
)

var shoppingTypes = map[string]struct{}{"prop": {}, "material": {}, "hire": {}}

// shoppingTransitions lists the allowed next statuses; the action guards the move.
var shoppingTransitions = map[string]map[string]jobroles.Action{
	store.ShoppingPending: {
		store.ShoppingApproved: jobroles.ActionApprovePurchases,
		store.ShoppingRejected: jobroles.ActionApprovePurchases,
	},
	store.ShoppingApproved: {
		store.ShoppingPurchased: jobroles.ActionAddShoppingItems,
	},
	store.ShoppingPurchased: {
		store.ShoppingPickedUp: jobroles.ActionAddShoppingItems,
	},
}

func knownShoppingStatus(s string) bool {
	switch s {
	case store.ShoppingPending, store.ShoppingApproved, store.ShoppingRejected, store.ShoppingPurchased, store.ShoppingPickedUp:
		return true
	}
	return false
}

type ShoppingHandler struct {
	shopping store.ShoppingStore
	audits   store.AuditStore
	logger   *utils.Logger
	scope    showScope
}

func NewShoppingHandler(users store.UsersStore, shows store.ShowsStore, shopping store.ShoppingStore, policy *rbac.Policy, audits store.AuditStore, logger *utils.Logger) *ShoppingHandler {
	return &ShoppingHandler{shopping: shopping, audits: audits, logger: logger, scope: showScope{users: users, shows: shows, policy: policy}}
}

type shoppingPayload struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Budget      float64 `json:"budget"`
}

func (p shoppingPayload) apply(it *store.ShoppingItem) error {
	t := strings.ToLower(strings.TrimSpace(p.Type))
	if t == "" {
		t = "prop"
	}
	if _, ok := shoppingTypes[t]; !ok {
		return errors.New("shopping.badType")
	}
	it.Type = t
	it.Name = strings.TrimSpace(p.Name)
	if it.Name == "" {
		return errors.New("shopping.nameRequired")
	}
	if p.Quantity < 0 || p.Budget < 0 {
		return errors.New("shopping.badNumbers")
	}
	it.Quantity = p.Quantity
	if it.Quantity == 0 {
		it.Quantity = 1
	}
	it.Description = strings.TrimSpace(p.Description)
	it.Budget = p.Budget
	return nil
}

func (h *ShoppingHandler) loadItem(w http.ResponseWriter, r *http.Request, acc *auth.ShowAccess) (*store.ShoppingItem, bool) {
	it, err := h.shopping.Get(r.Context(), pathID(r, "item_id"))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return nil, false
	}
	if it == nil || it.ShowID != acc.Show.ID {
		http.Error(w, "shopping.notFound", http.StatusNotFound)
		return nil, false
	}
	return it, true
}

func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := h.scope.require(w, r, jobroles.ActionViewShoppingList)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := store.ShoppingFilter{
		Type:   strings.ToLower(strings.TrimSpace(q.Get("type"))),
		Status: strings.ToLower(strings.TrimSpace(q.Get("status"))),
	}
	if f.Status != "" && !knownShoppingStatus(f.Status) {
		http.Error(w, "shopping.badStatus", http.StatusBadRequest)
		return
	}
	items, err := h.shopping.ListByShow(r.Context(), acc.Show.ID, f)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *ShoppingHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := h.scope.require(w, r, jobroles.ActionViewShoppingList)
	if !ok {
		return
	}
	it, ok := h.loadItem(w, r, acc)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *ShoppingHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionAddShoppingItems)
	if !ok {
		return
	}
	var payload shoppingPayload
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	it := &store.ShoppingItem{ShowID: acc.Show.ID, RequestedBy: user.ID, Status: store.ShoppingPending}
	if err := payload.apply(it); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if it.Budget > 0 && !acc.Can(jobroles.ActionManageBudget) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if _, err := h.shopping.Create(r.Context(), it); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	it.Options = []store.ShoppingOption{}
	_ = h.audits.Log(r.Context(), user.Username, "shopping.create", fmt.Sprintf("show=%d item=%d", acc.Show.ID, it.ID))
	writeJSON(w, http.StatusCreated, it)
}

func (h *ShoppingHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionAddShoppingItems)
	if !ok {
		return
	}
	it, ok := h.loadItem(w, r, acc)
	if !ok {
		return
	}
	var payload shoppingPayload
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	prevBudget := it.Budget
	if err := payload.apply(it); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if it.Budget != prevBudget && !acc.Can(jobroles.ActionManageBudget) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if err := h.shopping.Update(r.Context(), it); err != nil {
		notFoundOr500(w, err, "shopping.notFound")
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "shopping.update", fmt.Sprintf("item=%d", it.ID))
	writeJSON(w, http.StatusOK, it)
}

func (h *ShoppingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionAddShoppingItems)
	if !ok {
		return
	}
	it, ok := h.loadItem(w, r, acc)
	if !ok {
		return
	}
	if it.RequestedBy != user.ID && !acc.Can(jobroles.ActionApprovePurchases) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if err := h.shopping.Delete(r.Context(), it.ID); err != nil {
		notFoundOr500(w, err, "shopping.notFound")
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "shopping.delete", fmt.Sprintf("item=%d", it.ID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShoppingHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionViewShoppingList)
	if !ok {
		return
	}
	it, ok := h.loadItem(w, r, acc)
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	to := strings.ToLower(strings.TrimSpace(payload.Status))
	need, allowed := shoppingTransitions[it.Status][to]
	if !allowed {
		http.Error(w, "shopping.badTransition", http.StatusConflict)
		return
	}
	if !acc.Can(need) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	decidedBy := it.DecidedBy
	if need == jobroles.ActionApprovePurchases {
		decidedBy = user.ID
	}
	if err := h.shopping.SetStatus(r.Context(), it.ID, it.Status, to, decidedBy); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			http.Error(w, "shopping.statusChanged", http.StatusConflict)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "shopping.status", fmt.Sprintf("item=%d %s->%s", it.ID, it.Status, to))
	updated, _ := h.shopping.Get(r.Context(), it.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *ShoppingHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionAddShoppingItems)
	if !ok {
		return
	}
	it, ok := h.loadItem(w, r, acc)
	if !ok {
		return
	}
	var payload struct {
		Shop  string  `json:"shop"`
		URL   string  `json:"url"`
		Price float64 `json:"price"`
		Notes string  `json:"notes"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	opt := &store.ShoppingOption{
		ItemID:    it.ID,
		Shop:      strings.TrimSpace(payload.Shop),
		URL:       strings.TrimSpace(payload.URL),
		Price:     payload.Price,
		Notes:     strings.TrimSpace(payload.Notes),
		CreatedBy: user.ID,
	}
	if opt.Shop == "" && opt.URL == "" {
		http.Error(w, "shopping.optionRequired", http.StatusBadRequest)
		return
	}
	if opt.Price < 0 {
		http.Error(w, "shopping.badNumbers", http.StatusBadRequest)
		return
	}
	if opt.URL != "" {
		u, err := url.Parse(opt.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			http.Error(w, "shopping.badURL", http.StatusBadRequest)
			return
		}
	}
	if _, err := h.shopping.AddOption(r.Context(), opt); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "shopping.option_add", fmt.Sprintf("item=%d option=%d", it.ID, opt.ID))
	writeJSON(w, http.StatusCreated, opt)
}

func (h *ShoppingHandler) SelectOption(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionAddShoppingItems)
	if !ok {
		return
	}
	it, ok := h.loadItem(w, r, acc)
	if !ok {
		return
	}
	optionID := pathID(r, "option_id")
	if err := h.shopping.SelectOption(r.Context(), it.ID, optionID); err != nil {
		notFoundOr500(w, err, "shopping.optionNotFound")
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "shopping.option_select", fmt.Sprintf("item=%d option=%d", it.ID, optionID))
	updated, _ := h.shopping.Get(r.Context(), it.ID)
	writeJSON(w, http.StatusOK, updated)
}

package propshttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"props-bible/core/auth"
	"props-bible/core/subscription"
	"props-bible/props"
)

type propPayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Status      string   `json:"status"`
	Quantity    int      `json:"quantity"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	WeightKg    float64  `json:"weight_kg"`
	Location    string   `json:"location"`
	Act         int      `json:"act"`
	Scene       int      `json:"scene"`
	Tags        []string `json:"tags"`
	Source      string   `json:"source"`
	Notes       string   `json:"notes"`
	AssignedTo  *int64   `json:"assigned_to"`
}

func payloadFrom(p *props.Prop) propPayload {
	return propPayload{
		Name: p.Name, Description: p.Description, Category: p.Category, Status: string(p.Status),
		Quantity: p.Quantity, Price: p.Price, Currency: p.Currency, WeightKg: p.WeightKg, Location: p.Location,
		Act: p.Act, Scene: p.Scene, Tags: p.Tags, Source: p.Source, Notes: p.Notes, AssignedTo: p.AssignedTo,
	}
}

func (pl propPayload) apply(p *props.Prop) {
	p.Name = pl.Name
	p.Description = pl.Description
	p.Category = pl.Category
	p.Quantity = pl.Quantity
	p.Price = pl.Price
	p.Currency = pl.Currency
	p.WeightKg = pl.WeightKg
	p.Location = pl.Location
	p.Act = pl.Act
	p.Scene = pl.Scene
	p.Tags = pl.Tags
	p.Source = strings.TrimSpace(pl.Source)
	p.Notes = strings.TrimSpace(pl.Notes)
	p.AssignedTo = pl.AssignedTo
	if p.AssignedTo != nil && *p.AssignedTo == 0 {
		p.AssignedTo = nil
	}
}

// checkAssignee requires the assignee to be on the show team.
func (h *Handler) checkAssignee(w http.ResponseWriter, r *http.Request, acc *auth.ShowAccess, assigned *int64) bool {
	if assigned == nil {
		return true
	}
	m, err := h.shows.Member(r.Context(), acc.Show.ID, *assigned)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "server error")
		return false
	}
	if m == nil {
		respondError(w, http.StatusBadRequest, "props.assigneeNotMember")
		return false
	}
	return true
}

func (h *Handler) ListProps(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	if !acc.Can(props.PermViewAll) && !acc.Can(props.PermViewAssigned) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	q := r.URL.Query()
	filter := props.Filter{
		ShowID:     acc.Show.ID,
		Category:   q.Get("category"),
		Location:   q.Get("location"),
		Search:     q.Get("q"),
		Tag:        q.Get("tag"),
		AssignedTo: parseInt64Default(q.Get("assigned_to"), 0),
		Act:        parseIntDefault(q.Get("act"), 0),
		Limit:      parseIntDefault(q.Get("limit"), 100),
		Offset:     parseIntDefault(q.Get("offset"), 0),
	}
	if raw := q.Get("status"); raw != "" {
		st, ok := props.ParseStatus(raw)
		if !ok {
			respondError(w, http.StatusBadRequest, "props.badStatus")
			return
		}
		filter.Status = st
	}
	if !acc.Can(props.PermViewAll) {
		filter.AssignedTo = user.ID
	}
	items, total, err := h.svc.Store().List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "server error")
		return
	}
	for i := range items {
		present(acc, &items[i])
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) GetProp(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	p, ok := h.loadProp(w, r, user, acc)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, present(acc, p))
}

func (h *Handler) CreateProp(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	if !acc.Can(props.PermCreate) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	var payload propPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	p := &props.Prop{Status: props.Status(payload.Status)}
	payload.apply(p)
	if !acc.Can(props.PermCosts) {
		p.Price = 0
		p.Currency = ""
	}
	if !h.checkAssignee(w, r, acc, p.AssignedTo) {
		return
	}
	created, err := h.svc.Create(r.Context(), acc.Show, p, user.ID)
	if err != nil {
		if errors.Is(err, subscription.ErrLimitReached) {
			props.Log(h.audits, r.Context(), user.Username, props.AuditLimitDenied, fmt.Sprintf("show=%d", acc.Show.ID))
		}
		respondServiceError(w, err)
		return
	}
	props.Log(h.audits, r.Context(), user.Username, props.AuditCreate, fmt.Sprintf("show=%d prop=%d", acc.Show.ID, created.ID))
	respondJSON(w, http.StatusCreated, present(acc, created))
}

func (h *Handler) UpdateProp(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	if !acc.Can(props.PermEdit) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	p, ok := h.loadProp(w, r, user, acc)
	if !ok {
		return
	}
	price, currency := p.Price, p.Currency
	payload := payloadFrom(p)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	payload.apply(p)
	if !acc.Can(props.PermCosts) {
		p.Price, p.Currency = price, currency
	}
	if !h.checkAssignee(w, r, acc, p.AssignedTo) {
		return
	}
	updated, err := h.svc.Update(r.Context(), acc.Show, p)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	props.Log(h.audits, r.Context(), user.Username, props.AuditUpdate, fmt.Sprintf("prop=%d", p.ID))
	respondJSON(w, http.StatusOK, present(acc, updated))
}

func (h *Handler) DeleteProp(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	if !acc.Can(props.PermDelete) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	p, ok := h.loadProp(w, r, user, acc)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), p); err != nil {
		respondServiceError(w, err)
		return
	}
	props.Log(h.audits, r.Context(), user.Username, props.AuditDelete, fmt.Sprintf("show=%d prop=%d name=%s", p.ShowID, p.ID, p.Name))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	if !acc.Can(props.PermStatus) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	p, ok := h.loadProp(w, r, user, acc)
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	from := p.Status
	updated, err := h.svc.ChangeStatus(r.Context(), p, payload.Status, payload.Note, user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if updated.Status != from {
		props.Log(h.audits, r.Context(), user.Username, props.AuditStatus, fmt.Sprintf("prop=%d %s->%s", p.ID, from, updated.Status))
	}
	respondJSON(w, http.StatusOK, present(acc, updated))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	p, ok := h.loadProp(w, r, user, acc)
	if !ok {
		return
	}
	items, err := h.svc.History(r.Context(), p)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	items, err := h.svc.Store().Categories(r.Context(), acc.Show.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	if !acc.Can(props.PermViewAll) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	counts, err := h.svc.Store().CountByStatus(r.Context(), acc.Show.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "server error")
		return
	}
	total := 0
	byStatus := map[string]int{}
	for _, st := range props.Statuses() {
		byStatus[string(st)] = counts[st]
		total += counts[st]
	}
	respondJSON(w, http.StatusOK, map[string]any{"total": total, "by_status": byStatus})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	if !acc.Can(props.PermExport) || !acc.Can(props.PermViewAll) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachmentDisposition(fmt.Sprintf("%s-props.csv", acc.Show.Name)))
	n, err := h.svc.ExportCSV(r.Context(), w, acc.Show.ID, acc.Can(props.PermCosts))
	if err != nil {
		return
	}
	props.Log(h.audits, r.Context(), user.Username, props.AuditExport, fmt.Sprintf("show=%d rows=%d", acc.Show.ID, n))
}


package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"props-bible/core/auth"
	"props-bible/core/invites"
	"props-bible/core/jobroles"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/utils"
)

type InvitationsHandler struct {
	invites *invites.Service
	users   store.UsersStore
	audits  store.AuditStore
	logger  *utils.Logger
	scope   showScope
}

func NewInvitationsHandler(svc *invites.Service, users store.UsersStore, shows store.ShowsStore, policy *rbac.Policy, audits store.AuditStore, logger *utils.Logger) *InvitationsHandler {
	return &InvitationsHandler{invites: svc, users: users, audits: audits, logger: logger, scope: showScope{users: users, shows: shows, policy: policy}}
}

func writeInviteError(w http.ResponseWriter, err error) {
	if writeLimitError(w, err) {
		return
	}
	switch {
	case errors.Is(err, invites.ErrInvalidEmail):
		http.Error(w, "invitations.invalidEmail", http.StatusBadRequest)
	case errors.Is(err, invites.ErrUnknownRole), errors.Is(err, jobroles.ErrUnknownRole):
		http.Error(w, "roles.unknown", http.StatusBadRequest)
	case errors.Is(err, auth.ErrGrantOutranks):
		http.Error(w, "roles.outranksYou", http.StatusForbidden)
	case errors.Is(err, invites.ErrShowNotFound):
		http.Error(w, "shows.notFound", http.StatusNotFound)
	case errors.Is(err, invites.ErrRateLimited):
		http.Error(w, "invitations.rateLimited", http.StatusTooManyRequests)
	case errors.Is(err, invites.ErrInvalidToken):
		http.Error(w, "invitations.invalidToken", http.StatusBadRequest)
	case errors.Is(err, invites.ErrExpired):
		http.Error(w, "invitations.expired", http.StatusGone)
	case errors.Is(err, invites.ErrRevoked):
		http.Error(w, "invitations.revoked", http.StatusGone)
	case errors.Is(err, invites.ErrAlreadyAccepted):
		http.Error(w, "invitations.alreadyAccepted", http.StatusConflict)
	case errors.Is(err, invites.ErrAlreadyMember):
		http.Error(w, "shows.alreadyMember", http.StatusConflict)
	case errors.Is(err, invites.ErrEmailMismatch):
		http.Error(w, "invitations.emailMismatch", http.StatusForbidden)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

func (h *InvitationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionInviteUsers)
	if !ok {
		return
	}
	var payload struct {
		Email  string `json:"email"`
		RoleID string `json:"role_id"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	inv, token, err := h.invites.Create(r.Context(), user, acc.Grantor(), acc.Show.ID, payload.Email, payload.RoleID)
	if err != nil {
		writeInviteError(w, err)
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "invitations.create", fmt.Sprintf("show=%d invitation=%d role=%s", acc.Show.ID, inv.ID, inv.RoleID))
	// the link is returned once so it can be shared when mail is not configured
	writeJSON(w, http.StatusCreated, map[string]any{"invitation": inv, "link": h.invites.Link(token)})
}

func (h *InvitationsHandler) List(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := h.scope.require(w, r, jobroles.ActionViewTeam)
	if !ok {
		return
	}
	items, err := h.invites.Store().ListByShow(r.Context(), acc.Show.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []store.Invitation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *InvitationsHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionInviteUsers)
	if !ok {
		return
	}
	inv, err := h.invites.Store().Get(r.Context(), pathID(r, "invitation_id"))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if inv == nil || inv.ShowID != acc.Show.ID {
		http.Error(w, "invitations.notFound", http.StatusNotFound)
		return
	}
	if err := h.invites.Revoke(r.Context(), inv.ID); err != nil {
		writeInviteError(w, err)
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "invitations.revoke", fmt.Sprintf("show=%d invitation=%d", acc.Show.ID, inv.ID))
	w.WriteHeader(http.StatusNoContent)
}

// Accept joins the signed-in user to the show named in the token.
func (h *InvitationsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user, _, err := currentUser(r, h.users)
	if err != nil || user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.Token) == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	m, err := h.invites.Accept(r.Context(), strings.TrimSpace(payload.Token), user)
	if err != nil {
		if h.logger != nil && !errors.Is(err, invites.ErrInvalidToken) {
			h.logger.Printf("invitation accept by %s refused: %v", user.Username, err)
		}
		writeInviteError(w, err)
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "invitations.accept", fmt.Sprintf("show=%d role=%s", m.ShowID, m.RoleID))
	writeJSON(w, http.StatusOK, m)
}

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"
)

type SubscriptionHandler struct {
	limits     *subscription.Service
	reconciler *subscription.Reconciler
	users      store.UsersStore
	shows      store.ShowsStore
	policy     *rbac.Policy
	audits     store.AuditStore
	logger     *utils.Logger
}

func NewSubscriptionHandler(limits *subscription.Service, reconciler *subscription.Reconciler, users store.UsersStore, shows store.ShowsStore, policy *rbac.Policy, audits store.AuditStore, logger *utils.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{limits: limits, reconciler: reconciler, users: users, shows: shows, policy: policy, audits: audits, logger: logger}
}

func (h *SubscriptionHandler) Plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"plans":   subscription.Plans(),
		"default": h.limits.DefaultPlan(),
	})
}

// subject resolves whose usage is asked for; another user's needs manage_subscription.
func (h *SubscriptionHandler) subject(w http.ResponseWriter, r *http.Request) (int64, bool) {
	sr := sessionFrom(r)
	target := parseInt64Default(r.URL.Query().Get("user_id"), 0)
	if target <= 0 || target == sr.UserID {
		return sr.UserID, true
	}
	if !h.policy.Allowed(sr.Roles, jobroles.ActionManageSubscription) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return 0, false
	}
	return target, true
}

func (h *SubscriptionHandler) Usage(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.subject(w, r)
	if !ok {
		return
	}
	plan, err := h.limits.PlanFor(r.Context(), ownerID)
	if errors.Is(err, subscription.ErrUnknownOwner) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	usage, err := h.limits.Usage(r.Context(), ownerID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": ownerID, "plan": plan, "usage": usage})
}

// Check answers whether one more resource could be created. Collaborator checks
// are scoped to a show and counted against its owner.
func (h *SubscriptionHandler) Check(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resource := strings.TrimSpace(q.Get("resource"))
	if !subscription.IsKnownResource(resource) {
		http.Error(w, "limits.unknownResource", http.StatusBadRequest)
		return
	}
	ownerID, ok := h.subject(w, r)
	if !ok {
		return
	}
	var scopeID int64
	if resource == subscription.ResourceCollaborators {
		showID := parseInt64Default(q.Get("show_id"), 0)
		if showID <= 0 {
			http.Error(w, "limits.showRequired", http.StatusBadRequest)
			return
		}
		user, roles, err := currentUser(r, h.users)
		if err != nil || user == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		acc, err := auth.ResolveShowAccess(r.Context(), h.shows, h.policy, user, roles, showID)
		switch {
		case errors.Is(err, auth.ErrShowNotFound):
			http.Error(w, "shows.notFound", http.StatusNotFound)
			return
		case errors.Is(err, auth.ErrShowForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		case err != nil:
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		ownerID = acc.Show.OwnerID
		scopeID = showID
	}
	d, err := h.limits.Check(r.Context(), ownerID, resource, scopeID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Recount rebuilds one owner's counters from the real tables.
func (h *SubscriptionHandler) Recount(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	ownerID := pathID(r, "id")
	if ownerID <= 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	counters, err := h.limits.Recount(r.Context(), ownerID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if counters == nil {
		counters = []store.Counter{}
	}
	_ = h.audits.Log(r.Context(), sr.Username, "limits.recount", "")
	writeJSON(w, http.StatusOK, map[string]any{"user_id": ownerID, "counters": counters})
}

func (h *SubscriptionHandler) ReconcilerStats(w http.ResponseWriter, r *http.Request) {
	if h.reconciler == nil {
		writeJSON(w, http.StatusOK, subscription.ReconcilerStats{})
		return
	}
	writeJSON(w, http.StatusOK, h.reconciler.StatsSnapshot())
}

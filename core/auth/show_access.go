package auth

import (
	"context"
	"errors"

	"props-bible/core/jobroles"
	"props-bible/core/rbac"
	"props-bible/core/store"
)

var (
	ErrShowNotFound  = errors.New("show not found")
	ErrShowForbidden = errors.New("not a member of the show")
)

// ShowAccess is the caller's standing inside one show.
type ShowAccess struct {
	Show    *store.Show
	Member  *store.ShowMember
	Roles   []string
	IsOwner bool
	policy  *rbac.Policy
}

// ResolveShowAccess admits the owner, team members and holders of manage_settings.
func ResolveShowAccess(ctx context.Context, shows store.ShowsStore, policy *rbac.Policy, user *store.User, globalRoles []string, showID int64) (*ShowAccess, error) {
	if user == nil {
		return nil, ErrShowForbidden
	}
	show, err := shows.Get(ctx, showID)
	if err != nil {
		return nil, err
	}
	if show == nil {
		return nil, ErrShowNotFound
	}
	member, err := shows.Member(ctx, showID, user.ID)
	if err != nil {
		return nil, err
	}
	acc := &ShowAccess{Show: show, Member: member, IsOwner: show.OwnerID == user.ID, policy: policy}
	memberRole := ""
	if member != nil {
		memberRole = member.RoleID
	}
	if acc.IsOwner && memberRole == "" {
		memberRole = jobroles.OwnerRoleID
	}
	acc.Roles = ShowRoles(globalRoles, memberRole)
	if !acc.IsOwner && member == nil && !policy.Allowed(globalRoles, jobroles.ActionManageSettings) {
		return nil, ErrShowForbidden
	}
	return acc, nil
}

// Can reports whether the caller may perform action in this show. Owners may do everything.
func (a *ShowAccess) Can(action jobroles.Action) bool {
	if a == nil {
		return false
	}
	if a.IsOwner {
		return true
	}
	return a.policy.Allowed(a.Roles, action)
}

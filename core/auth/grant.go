package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"props-bible/core/jobroles"
	"props-bible/core/rbac"
)

var ErrGrantOutranks = errors.New("role outranks the grantor")

// RoleLookup resolves a built-in or custom job role. A missing role is nil, nil.
type RoleLookup func(ctx context.Context, id string) (*jobroles.Role, error)

// Grantor is the caller handing out job roles. Exempt grantors may grant anything.
type Grantor struct {
	Roles  []string
	Exempt bool
}

// PlatformGrantor ranks a caller by their platform roles. Producers are exempt.
func PlatformGrantor(globalRoles []string) Grantor {
	return Grantor{Roles: globalRoles, Exempt: holdsRole(globalRoles, jobroles.OwnerRoleID)}
}

// Grantor ranks the caller inside the show. The show owner is exempt.
func (a *ShowAccess) Grantor() Grantor {
	if a == nil {
		return Grantor{}
	}
	return Grantor{Roles: a.Roles, Exempt: a.IsOwner || holdsRole(a.Roles, jobroles.OwnerRoleID)}
}

// CheckGrant refuses any role ranked above the grantor's most senior role or carrying
// an action the grantor does not hold.
func CheckGrant(ctx context.Context, lookup RoleLookup, policy *rbac.Policy, g Grantor, roleIDs ...string) error {
	if g.Exempt {
		return nil
	}
	rank := math.MaxInt
	for _, id := range g.Roles {
		role, err := lookup(ctx, normRole(id))
		if err != nil {
			return err
		}
		if role != nil && role.Hierarchy < rank {
			rank = role.Hierarchy
		}
	}
	held := map[jobroles.Action]struct{}{}
	for _, p := range policy.PermissionsForRoles(g.Roles) {
		held[p] = struct{}{}
	}
	for _, id := range roleIDs {
		id = normRole(id)
		if id == "" {
			continue
		}
		role, err := lookup(ctx, id)
		if err != nil {
			return err
		}
		if role == nil {
			return fmt.Errorf("%w: %s", jobroles.ErrUnknownRole, id)
		}
		if role.Hierarchy < rank {
			return fmt.Errorf("%w: %s", ErrGrantOutranks, id)
		}
		for _, a := range role.Permissions {
			if !covers(held, a) {
				return fmt.Errorf("%w: %s carries %s", ErrGrantOutranks, id, a)
			}
		}
	}
	return nil
}

// CheckActions refuses actions the grantor does not hold. Used when defining roles.
func CheckActions(policy *rbac.Policy, g Grantor, actions []jobroles.Action) error {
	if g.Exempt {
		return nil
	}
	held := map[jobroles.Action]struct{}{}
	for _, p := range policy.PermissionsForRoles(g.Roles) {
		held[p] = struct{}{}
	}
	for _, a := range actions {
		if !covers(held, a) {
			return fmt.Errorf("%w: %s", ErrGrantOutranks, a)
		}
	}
	return nil
}

// view_all_props implies view_assigned_props.
func covers(held map[jobroles.Action]struct{}, a jobroles.Action) bool {
	if _, ok := held[a]; ok {
		return true
	}
	if a == jobroles.ActionViewAssignedProps {
		_, ok := held[jobroles.ActionViewAllProps]
		return ok
	}
	return false
}

func holdsRole(roles []string, id string) bool {
	for _, r := range roles {
		if normRole(r) == id {
			return true
		}
	}
	return false
}

func normRole(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

package rbac

import (
	"context"

	"props-bible/core/jobroles"
	"props-bible/core/store"
)

// EnsureBuiltInAndRefresh mirrors the static registry into the roles table and reloads the policy.
func EnsureBuiltInAndRefresh(ctx context.Context, roles store.RolesStore, policy *Policy) error {
	if roles == nil || policy == nil {
		return nil
	}
	if err := roles.EnsureBuiltIn(ctx, jobroles.Roles()); err != nil {
		return err
	}
	return RefreshFromStore(ctx, roles, policy)
}

func RefreshFromStore(ctx context.Context, roles store.RolesStore, policy *Policy) error {
	if roles == nil || policy == nil {
		return nil
	}
	items, err := roles.List(ctx)
	if err != nil {
		return err
	}
	return policy.Replace(FromJobRoles(items))
}

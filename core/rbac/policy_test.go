package rbac

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"props-bible/config"
	"props-bible/core/jobroles"
	"props-bible/core/store"
	"props-bible/core/utils"
)

func mustPolicy(t *testing.T, roles []Role) *Policy {
	t.Helper()
	p, err := NewPolicy(roles)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return p
}

func TestPolicyAllowed_DefaultRoles(t *testing.T) {
	p := mustPolicy(t, DefaultRoles())
	if !p.Allowed([]string{"producer"}, jobroles.ActionManageSubscription) {
		t.Fatal("producer must have manage_subscription")
	}
	if p.Allowed([]string{"viewer"}, jobroles.ActionEditProps) {
		t.Fatal("viewer must not have edit_props")
	}
	if !p.Allowed([]string{" Viewer "}, jobroles.ActionViewShows) {
		t.Fatal("role names are normalized")
	}
	if p.Allowed(nil, jobroles.ActionViewShows) {
		t.Fatal("no roles, no access")
	}
	for _, r := range jobroles.Roles() {
		for _, a := range jobroles.AllActions() {
			if p.Allowed([]string{r.ID}, a) != jobroles.HasPermission(r.ID, a) {
				t.Fatalf("policy disagrees with registry for %s/%s", r.ID, a)
			}
		}
	}
}

func TestPolicyReplace_RebuildsEnforcer(t *testing.T) {
	p := mustPolicy(t, nil)
	if p.Allowed([]string{"custom-x"}, jobroles.ActionViewTeam) {
		t.Fatal("empty policy must deny")
	}
	if err := p.Replace([]Role{{Name: "custom-x", Permissions: []Permission{jobroles.ActionViewTeam}}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !p.Allowed([]string{"custom-x"}, jobroles.ActionViewTeam) {
		t.Fatal("custom role must have view_team")
	}
	if p.Allowed([]string{"custom-x"}, jobroles.ActionManageRoles) {
		t.Fatal("custom role must not have manage_roles")
	}
	if len(p.Roles()) != 1 {
		t.Fatalf("unexpected roles %v", p.Roles())
	}
}

func TestPermissionsForRoles_UniqueUnion(t *testing.T) {
	p := mustPolicy(t, []Role{
		{Name: "r1", Permissions: []Permission{jobroles.ActionViewShows, jobroles.ActionViewTeam}},
		{Name: "r2", Permissions: []Permission{jobroles.ActionViewShows, jobroles.ActionViewShows}},
	})
	perms := p.PermissionsForRoles([]string{"r1", "r2", "missing"})
	if len(perms) != 2 {
		t.Fatalf("expected 2 unique permissions, got %v", perms)
	}
	if perms[0] > perms[1] {
		t.Fatalf("permissions must be sorted: %v", perms)
	}
}

func TestPolicyReplace_BrokenModelKeepsPreviousTable(t *testing.T) {
	p := mustPolicy(t, DefaultRoles())
	saved := modelText
	modelText = "[request_definition]\nr = sub, act\n"
	t.Cleanup(func() { modelText = saved })

	if err := p.Replace([]Role{{Name: "custom-x", Permissions: []Permission{jobroles.ActionViewTeam}}}); err == nil {
		t.Fatal("expected an error for an incomplete model")
	}
	if !p.Allowed([]string{"producer"}, jobroles.ActionManageSubscription) {
		t.Fatal("failed replace must keep the previous table")
	}
	if p.Allowed([]string{"custom-x"}, jobroles.ActionViewTeam) {
		t.Fatal("failed replace must not load new roles")
	}
	if _, err := NewPolicy(DefaultRoles()); err == nil {
		t.Fatal("NewPolicy must surface the model error")
	}
}

func TestNormalizePermissionNames(t *testing.T) {
	valid, invalid := NormalizePermissionNames([]string{" view_shows ", "VIEW_SHOWS", "edit_props", "fly_rigging", ""})
	if len(valid) != 2 {
		t.Fatalf("expected 2 valid permissions, got %v", valid)
	}
	if len(invalid) != 1 || invalid[0] != "fly_rigging" {
		t.Fatalf("unexpected invalid permissions: %v", invalid)
	}
}

func TestRefreshFromStorePicksUpCustomRoles(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.AppConfig{DBPath: filepath.Join(dir, "rbac.db")}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	roles := store.NewRolesStore(db)
	policy := mustPolicy(t, nil)
	if err := EnsureBuiltInAndRefresh(context.Background(), roles, policy); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !policy.Allowed([]string{"props_buyer"}, jobroles.ActionAddShoppingItems) {
		t.Fatal("built-in roles must be loaded")
	}
	custom, err := jobroles.NewCustomRole(jobroles.CustomRoleInput{
		Name:        "Puppet Wrangler",
		Permissions: []jobroles.Action{jobroles.ActionViewAllProps, jobroles.ActionEditProps},
	}, time.Now())
	if err != nil {
		t.Fatalf("custom: %v", err)
	}
	if err := roles.Create(context.Background(), custom); err != nil {
		t.Fatalf("create: %v", err)
	}
	if policy.Allowed([]string{custom.ID}, jobroles.ActionEditProps) {
		t.Fatal("policy must not change before refresh")
	}
	if err := RefreshFromStore(context.Background(), roles, policy); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !policy.Allowed([]string{custom.ID}, jobroles.ActionEditProps) {
		t.Fatal("custom role must be enforced after refresh")
	}
}

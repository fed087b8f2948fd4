package rbac

import (
	"sort"

	"props-bible/core/jobroles"
)

// Permission is a job-role action checked by the policy.
type Permission = jobroles.Action

type Role struct {
	Name        string
	Permissions []Permission
}

// NormalizePermissionNames splits raw input into known actions and unknown names, both sorted.
func NormalizePermissionNames(in []string) ([]string, []string) {
	valid, invalid := jobroles.NormalizeActions(in)
	out := jobroles.ActionStrings(valid)
	sort.Strings(out)
	sort.Strings(invalid)
	return out, invalid
}

// DefaultRoles is the static job-role registry in policy form.
func DefaultRoles() []Role {
	return FromJobRoles(jobroles.Roles())
}

func FromJobRoles(in []jobroles.Role) []Role {
	out := make([]Role, 0, len(in))
	for _, r := range in {
		perms := make([]Permission, len(r.Permissions))
		copy(perms, r.Permissions)
		out = append(out, Role{Name: r.ID, Permissions: perms})
	}
	return out
}

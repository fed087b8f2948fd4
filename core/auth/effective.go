package auth

import (
	"sort"
	"strings"

	"props-bible/core/rbac"
)

// CalculateEffectiveAccess resolves platform job roles into the permission union.
func CalculateEffectiveAccess(directRoles []string, policy *rbac.Policy) EffectiveAccess {
	roleSet := map[string]struct{}{}
	for _, r := range directRoles {
		roleSet[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	effRoles := setToSortedSlice(roleSet)
	permSet := map[string]struct{}{}
	if policy != nil {
		for _, p := range policy.PermissionsForRoles(effRoles) {
			permSet[string(p)] = struct{}{}
		}
	}
	return EffectiveAccess{Roles: effRoles, Permissions: setToSortedSlice(permSet)}
}

// ShowRoles is the role set that applies inside one show: the caller's platform
// roles plus the job role held on that show's team, if any.
func ShowRoles(globalRoles []string, memberRole string) []string {
	out := make([]string, 0, len(globalRoles)+1)
	out = append(out, globalRoles...)
	if r := strings.TrimSpace(memberRole); r != "" {
		out = append(out, r)
	}
	return out
}

func setToSortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

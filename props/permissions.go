package props

import (
	"props-bible/core/jobroles"
	"props-bible/core/rbac"
)

const (
	PermViewAll      rbac.Permission = jobroles.ActionViewAllProps
	PermViewAssigned rbac.Permission = jobroles.ActionViewAssignedProps
	PermCreate       rbac.Permission = jobroles.ActionCreateProps
	PermEdit         rbac.Permission = jobroles.ActionEditProps
	PermDelete       rbac.Permission = jobroles.ActionDeleteProps
	PermImages       rbac.Permission = jobroles.ActionUploadPropImages
	PermStatus       rbac.Permission = jobroles.ActionManagePropStatus
	PermCosts        rbac.Permission = jobroles.ActionViewPropCosts
	PermExport       rbac.Permission = jobroles.ActionExportProps
)

func Allowed(policy *rbac.Policy, roles []string, perm rbac.Permission) bool {
	if policy == nil {
		return false
	}
	return policy.Allowed(roles, perm)
}

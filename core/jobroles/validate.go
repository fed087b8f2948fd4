package jobroles

import (
	"fmt"
	"strings"
)

type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return "invalid role permissions: " + strings.Join(e.Result.Errors, "; ")
}

// dependency describes a permission that is expected to come with a prerequisite.
type dependency struct {
	actions  []Action
	requires Action
}

var dependencies = []dependency{
	{
		actions:  []Action{ActionDeleteProps, ActionEditProps, ActionCreateProps, ActionUploadPropImages, ActionManagePropStatus},
		requires: ActionViewAllProps,
	},
	{
		actions:  []Action{ActionEditShows, ActionDeleteShows, ActionArchiveShows, ActionManageActsScenes},
		requires: ActionViewShows,
	},
	{
		actions:  []Action{ActionAssignRoles, ActionRemoveUsers, ActionInviteUsers},
		requires: ActionViewTeam,
	},
	{
		actions:  []Action{ActionManageRoles},
		requires: ActionAssignRoles,
	},
	{
		actions:  []Action{ActionApprovePurchases, ActionManageBudget},
		requires: ActionViewShoppingList,
	},
	{
		actions:  []Action{ActionEditPackingLists, ActionDeletePackingLists},
		requires: ActionViewPackingLists,
	},
	{
		actions:  []Action{ActionEditTasks, ActionDeleteTasks},
		requires: ActionViewTasks,
	},
}

// ValidatePermissions reports hard errors (empty set, unknown actions) and
// soft warnings for combinations that are legal but probably unintended.
func ValidatePermissions(perms []Action) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}
	if len(perms) == 0 {
		res.Errors = append(res.Errors, "role must grant at least one permission")
		return res
	}

	set := make(map[Action]struct{}, len(perms))
	for _, p := range perms {
		if !IsKnownAction(p) {
			res.Errors = append(res.Errors, fmt.Sprintf("unknown permission: %s", p))
			continue
		}
		if _, dup := set[p]; dup {
			res.Warnings = append(res.Warnings, fmt.Sprintf("duplicate permission: %s", p))
			continue
		}
		set[p] = struct{}{}
	}

	for _, dep := range dependencies {
		if _, ok := set[dep.requires]; ok {
			continue
		}
		for _, a := range dep.actions {
			if _, ok := set[a]; ok {
				res.Warnings = append(res.Warnings, fmt.Sprintf("has %s but not %s", a, dep.requires))
			}
		}
	}

	if _, ok := set[ActionManageSubscription]; ok {
		res.Warnings = append(res.Warnings, "manage_subscription grants billing control")
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// ValidateStrings parses raw names first; unknown names become errors.
func ValidateStrings(raw []string) ValidationResult {
	perms := make([]Action, 0, len(raw))
	for _, r := range raw {
		p := strings.ToLower(strings.TrimSpace(r))
		if p == "" {
			continue
		}
		perms = append(perms, Action(p))
	}
	return ValidatePermissions(perms)
}

package jobroles

import (
	"sort"
	"strings"
)

type Action string

const (
	ActionViewAllProps      Action = "view_all_props"
	ActionViewAssignedProps Action = "view_assigned_props"
	ActionCreateProps       Action = "create_props"
	ActionEditProps         Action = "edit_props"
	ActionDeleteProps       Action = "delete_props"
	ActionUploadPropImages  Action = "upload_prop_images"
	ActionManagePropStatus  Action = "manage_prop_status"
	ActionViewPropCosts     Action = "view_prop_costs"
	ActionImportProps       Action = "import_props"
	ActionExportProps       Action = "export_props"

	ActionViewShows        Action = "view_shows"
	ActionCreateShows      Action = "create_shows"
	ActionEditShows        Action = "edit_shows"
	ActionDeleteShows      Action = "delete_shows"
	ActionArchiveShows     Action = "archive_shows"
	ActionManageActsScenes Action = "manage_acts_scenes"

	ActionViewTeam    Action = "view_team"
	ActionInviteUsers Action = "invite_users"
	ActionRemoveUsers Action = "remove_users"
	ActionAssignRoles Action = "assign_roles"
	ActionManageRoles Action = "manage_roles"

	ActionViewPackingLists   Action = "view_packing_lists"
	ActionCreatePackingLists Action = "create_packing_lists"
	ActionEditPackingLists   Action = "edit_packing_lists"
	ActionDeletePackingLists Action = "delete_packing_lists"

	ActionViewShoppingList Action = "view_shopping_list"
	ActionAddShoppingItems Action = "add_shopping_items"
	ActionApprovePurchases Action = "approve_purchases"
	ActionManageBudget     Action = "manage_budget"

	ActionViewTasks   Action = "view_tasks"
	ActionCreateTasks Action = "create_tasks"
	ActionEditTasks   Action = "edit_tasks"
	ActionDeleteTasks Action = "delete_tasks"

	ActionExportPDF   Action = "export_pdf"
	ActionViewReports Action = "view_reports"

	ActionManageSubscription Action = "manage_subscription"
	ActionViewFeedback       Action = "view_feedback"
	ActionManageSettings     Action = "manage_settings"
)

type PermissionCategory struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Actions     []Action `json:"actions" yaml:"actions"`
}

var categories = []PermissionCategory{
	{
		ID:          "props",
		Name:        "Props",
		Description: "Prop inventory, images, status and costs",
		Actions: []Action{
			ActionViewAllProps, ActionViewAssignedProps, ActionCreateProps, ActionEditProps, ActionDeleteProps,
			ActionUploadPropImages, ActionManagePropStatus, ActionViewPropCosts, ActionImportProps, ActionExportProps,
		},
	},
	{
		ID:          "shows",
		Name:        "Shows",
		Description: "Productions, acts and scenes",
		Actions: []Action{
			ActionViewShows, ActionCreateShows, ActionEditShows, ActionDeleteShows, ActionArchiveShows, ActionManageActsScenes,
		},
	},
	{
		ID:          "team",
		Name:        "Team",
		Description: "Show members, invitations and job roles",
		Actions: []Action{
			ActionViewTeam, ActionInviteUsers, ActionRemoveUsers, ActionAssignRoles, ActionManageRoles,
		},
	},
	{
		ID:          "packing",
		Name:        "Packing",
		Description: "Packing lists and containers",
		Actions: []Action{
			ActionViewPackingLists, ActionCreatePackingLists, ActionEditPackingLists, ActionDeletePackingLists,
		},
	},
	{
		ID:          "shopping",
		Name:        "Shopping",
		Description: "Procurement list, purchase approvals and budget",
		Actions: []Action{
			ActionViewShoppingList, ActionAddShoppingItems, ActionApprovePurchases, ActionManageBudget,
		},
	},
	{
		ID:          "tasks",
		Name:        "Tasks",
		Description: "Todo boards and cards",
		Actions: []Action{
			ActionViewTasks, ActionCreateTasks, ActionEditTasks, ActionDeleteTasks,
		},
	},
	{
		ID:          "reports",
		Name:        "Reports",
		Description: "Catalog exports and reports",
		Actions: []Action{
			ActionExportPDF, ActionViewReports,
		},
	},
	{
		ID:          "admin",
		Name:        "Administration",
		Description: "Subscription, feedback triage and settings",
		Actions: []Action{
			ActionManageSubscription, ActionViewFeedback, ActionManageSettings,
		},
	},
}

var (
	allActions  = buildAllActions()
	actionIndex = buildActionIndex()
)

func buildAllActions() []Action {
	var out []Action
	for _, c := range categories {
		out = append(out, c.Actions...)
	}
	return out
}

func buildActionIndex() map[Action]int {
	out := make(map[Action]int, len(allActions))
	for i, a := range allActions {
		out[a] = i
	}
	return out
}

// PermissionCategories returns the categories in display order.
func PermissionCategories() []PermissionCategory {
	out := make([]PermissionCategory, len(categories))
	for i, c := range categories {
		c.Actions = append([]Action(nil), c.Actions...)
		out[i] = c
	}
	return out
}

func AllActions() []Action {
	out := make([]Action, len(allActions))
	copy(out, allActions)
	return out
}

func IsKnownAction(a Action) bool {
	_, ok := actionIndex[a]
	return ok
}

// ParseAction normalizes user input ("  Edit_Props ") into a known action.
func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	if !IsKnownAction(a) {
		return "", false
	}
	return a, true
}

// NormalizeActions splits raw names into known (deduplicated, category ordered) and unknown.
func NormalizeActions(in []string) ([]Action, []string) {
	validSet := map[Action]struct{}{}
	invalidSet := map[string]struct{}{}
	for _, raw := range in {
		p := strings.ToLower(strings.TrimSpace(raw))
		if p == "" {
			continue
		}
		if a, ok := ParseAction(p); ok {
			validSet[a] = struct{}{}
			continue
		}
		invalidSet[p] = struct{}{}
	}
	valid := make([]Action, 0, len(validSet))
	for a := range validSet {
		valid = append(valid, a)
	}
	sortActions(valid)
	invalid := make([]string, 0, len(invalidSet))
	for p := range invalidSet {
		invalid = append(invalid, p)
	}
	sort.Strings(invalid)
	return valid, invalid
}

// sortActions orders known actions by category order; unknown ones go last alphabetically.
func sortActions(actions []Action) {
	sort.SliceStable(actions, func(i, j int) bool {
		ii, iok := actionIndex[actions[i]]
		jj, jok := actionIndex[actions[j]]
		switch {
		case iok && jok:
			return ii < jj
		case iok:
			return true
		case jok:
			return false
		default:
			return actions[i] < actions[j]
		}
	})
}

func ActionStrings(actions []Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, string(a))
	}
	return out
}

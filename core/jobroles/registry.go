package jobroles

var registry = []Role{
	{
		ID:          "producer",
		Name:        "Producer",
		Description: "Owns the production and has full control, including billing",
		Category:    CategoryManagement,
		Hierarchy:   1,
		Permissions: allActions,
	},
	{
		ID:             "production_manager",
		Name:           "Production Manager",
		Description:    "Runs budgets, schedules and the team across departments",
		Category:       CategoryManagement,
		Hierarchy:      2,
		IsCustomizable: true,
		Permissions: []Action{
			ActionViewAllProps, ActionCreateProps, ActionEditProps, ActionDeleteProps, ActionUploadPropImages,
			ActionManagePropStatus, ActionViewPropCosts, ActionImportProps, ActionExportProps,
			ActionViewShows, ActionCreateShows, ActionEditShows, ActionArchiveShows, ActionManageActsScenes,
			ActionViewTeam, ActionInviteUsers, ActionRemoveUsers, ActionAssignRoles, ActionManageRoles,
			ActionViewPackingLists, ActionCreatePackingLists, ActionEditPackingLists, ActionDeletePackingLists,
			ActionViewShoppingList, ActionAddShoppingItems, ActionApprovePurchases, ActionManageBudget,
			ActionViewTasks, ActionCreateTasks, ActionEditTasks, ActionDeleteTasks,
			ActionExportPDF, ActionViewReports,
			ActionViewFeedback,
		},
	},
	{
		ID:             "stage_manager",
		Name:           "Stage Manager",
		Description:    "Coordinates rehearsals and performances and keeps the props bible current",
		Category:       CategoryStageManagement,
		Hierarchy:      3,
		IsCustomizable: true,
		Permissions: []Action{
			ActionViewAllProps, ActionCreateProps, ActionEditProps, ActionUploadPropImages, ActionManagePropStatus,
			ActionExportProps,
			ActionViewShows, ActionEditShows, ActionManageActsScenes,
			ActionViewTeam, ActionInviteUsers,
			ActionViewPackingLists, ActionCreatePackingLists, ActionEditPackingLists,
			ActionViewShoppingList, ActionAddShoppingItems,
			ActionViewTasks, ActionCreateTasks, ActionEditTasks, ActionDeleteTasks,
			ActionExportPDF, ActionViewReports,
		},
	},
	{
		ID:             "props_supervisor",
		Name:           "Props Supervisor",
		Description:    "Heads the props department and signs off purchases",
		Category:       CategoryPropsDepartment,
		Hierarchy:      3,
		IsCustomizable: true,
		Permissions: []Action{
			ActionViewAllProps, ActionCreateProps, ActionEditProps, ActionDeleteProps, ActionUploadPropImages,
			ActionManagePropStatus, ActionViewPropCosts, ActionImportProps, ActionExportProps,
			ActionViewShows,
			ActionViewTeam, ActionInviteUsers,
			ActionViewPackingLists, ActionCreatePackingLists, ActionEditPackingLists, ActionDeletePackingLists,
			ActionViewShoppingList, ActionAddShoppingItems, ActionApprovePurchases, ActionManageBudget,
			ActionViewTasks, ActionCreateTasks, ActionEditTasks, ActionDeleteTasks,
			ActionExportPDF, ActionViewReports,
		},
	},
	{
		ID:             "director",
		Name:           "Director",
		Description:    "Creative lead; reviews props and the running order",
		Category:       CategoryCreative,
		Hierarchy:      3,
		IsCustomizable: true,
		Permissions: []Action{
			ActionViewAllProps, ActionExportProps,
			ActionViewShows, ActionEditShows, ActionManageActsScenes,
			ActionViewTeam,
			ActionViewPackingLists,
			ActionViewShoppingList,
			ActionViewTasks, ActionCreateTasks,
			ActionExportPDF, ActionViewReports,
		},
	},
	{
		ID:             "designer",
		Name:           "Designer",
		Description:    "Set and props designer; shapes how props look",
		Category:       CategoryCreative,
		Hierarchy:      4,
		IsCustomizable: true,
		Permissions: []Action{
			ActionViewAllProps, ActionCreateProps, ActionEditProps, ActionUploadPropImages,
			ActionViewShows,
			ActionViewTeam,
			ActionViewPackingLists,
			ActionViewShoppingList, ActionAddShoppingItems,
			ActionViewTasks, ActionCreateTasks, ActionEditTasks,
			ActionExportPDF,
		},
	},
	{
		ID:             "deputy_stage_manager",
		Name:           "Deputy Stage Manager",
		Description:    "Calls the show and tracks props per scene",
		Category:       CategoryStageManagement,
		Hierarchy:      4,
		IsCustomizable: true,
		Permissions: []Action{
			ActionViewAllProps, ActionEditProps, ActionUploadPropImages, ActionManagePropStatus,
			ActionViewShows, ActionManageActsScenes,
			ActionViewTeam,
			ActionViewPackingLists, ActionEditPackingLists,
			ActionViewShoppingList,
			ActionViewTasks, ActionCreateTasks, ActionEditTasks,
			ActionExportPDF,
		},
	},
	{
		ID:             "props_buyer",
		Name:           "Props Buyer",
		Description:    "Sources and purchases props within budget",
		Category:       CategoryPropsDepartment,
		Hierarchy:      5,
		IsCustomizable: true,
		Permissions: []Action{
			ActionViewAllProps, ActionCreateProps, ActionEditProps, ActionUploadPropImages, ActionManagePropStatus,
			ActionViewPropCosts,
			ActionViewShows,
			ActionViewTeam,
			ActionViewPackingLists,
			ActionViewShoppingList, ActionAddShoppingItems,
			ActionViewTasks, ActionEditTasks,
		},
	},
	{
		ID:             "props_maker",
		Name:           "Props Maker",
		Description:    "Builds and modifies props in the workshop",
		Category:       CategoryPropsDepartment,
		Hierarchy:      5,
		IsCustomizable: true,
		Permissions: []Action{
			ActionViewAllProps, ActionEditProps, ActionUploadPropImages, ActionManagePropStatus,
			ActionViewShows,
			ActionViewTeam,
			ActionViewPackingLists,
			ActionViewShoppingList, ActionAddShoppingItems,
			ActionViewTasks, ActionEditTasks,
		},
	},
	{
		ID:             "assistant_stage_manager",
		Name:           "Assistant Stage Manager",
		Description:    "Runs the props table and backstage tracking",
		Category:       CategoryStageManagement,
		Hierarchy:      5,
		IsCustomizable: true,
		Permissions: []Action{
			ActionViewAllProps, ActionManagePropStatus, ActionUploadPropImages,
			ActionViewShows,
			ActionViewTeam,
			ActionViewPackingLists, ActionEditPackingLists,
			ActionViewTasks, ActionEditTasks,
		},
	},
	{
		ID:             "crew",
		Name:           "Crew",
		Description:    "Backstage crew working with the props assigned to them",
		Category:       CategoryCrew,
		Hierarchy:      6,
		IsCustomizable: true,
		Permissions: []Action{
			ActionViewAssignedProps, ActionManagePropStatus,
			ActionViewShows,
			ActionViewPackingLists,
			ActionViewTasks,
		},
	},
	{
		ID:          "viewer",
		Name:        "Viewer",
		Description: "Read-only access to the show",
		Category:    CategoryViewer,
		Hierarchy:   7,
		Permissions: []Action{
			ActionViewAllProps, ActionViewShows, ActionViewTeam, ActionViewPackingLists,
			ActionViewShoppingList, ActionViewTasks, ActionViewReports,
		},
	},
}

var registryIndex = buildRegistryIndex()

func buildRegistryIndex() map[string]int {
	out := make(map[string]int, len(registry))
	for i, r := range registry {
		out[r.ID] = i
	}
	return out
}

// DefaultRoleID is assigned to members added without an explicit job role.
const DefaultRoleID = "viewer"

// OwnerRoleID is the job role the creator of a show holds on it.
const OwnerRoleID = "producer"

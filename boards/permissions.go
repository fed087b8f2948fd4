package boards

import (
	"props-bible/core/jobroles"
	"props-bible/core/rbac"
)

const (
	PermView   rbac.Permission = jobroles.ActionViewTasks
	PermCreate rbac.Permission = jobroles.ActionCreateTasks
	PermEdit   rbac.Permission = jobroles.ActionEditTasks
	PermDelete rbac.Permission = jobroles.ActionDeleteTasks
)

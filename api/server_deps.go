package api

import (
	"database/sql"

	boardshttp "props-bible/boards/http"
	"props-bible/core/auth"
	"props-bible/core/invites"
	"props-bible/core/labels"
	"props-bible/core/objectstore"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/props"
	propshttp "props-bible/props/http"
)

type ServerDeps struct {
	DB             *sql.DB
	Users          store.UsersStore
	Sessions       store.SessionStore
	SessionManager *auth.SessionManager
	Roles          store.RolesStore
	Audits         store.AuditStore
	Shows          store.ShowsStore
	Packing        store.PackingStore
	Shopping       store.ShoppingStore
	Feedback       store.FeedbackStore
	Policy         *rbac.Policy
	Limits         *subscription.Service
	Reconciler     *subscription.Reconciler
	Invites        *invites.Service
	Objects        objectstore.Store
	Labels         *labels.Generator
	PropsService   *props.Service
	Props          *propshttp.Handler
	Boards         *boardshttp.Handler
}

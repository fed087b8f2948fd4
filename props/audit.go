package props

import (
	"context"

	"props-bible/core/store"
)

const (
	AuditCreate      = "prop.create"
	AuditUpdate      = "prop.update"
	AuditDelete      = "prop.delete"
	AuditStatus      = "prop.status"
	AuditImageAdd    = "prop.image.add"
	AuditImageDelete = "prop.image.delete"
	AuditImageMain   = "prop.image.main"
	AuditExport      = "prop.export"
	AuditLimitDenied = "prop.limit_denied"
)

func Log(audits store.AuditStore, ctx context.Context, username, action, details string) {
	if audits == nil {
		return
	}
	_ = audits.Log(ctx, username, action, details)
}

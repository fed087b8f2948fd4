package boards

import (
	"context"

	"props-bible/core/store"
)

const (
	AuditBoardCreate = "board.create"
	AuditBoardUpdate = "board.update"
	AuditBoardDelete = "board.delete"
	AuditListCreate  = "board.list.create"
	AuditListDelete  = "board.list.delete"
	AuditCardCreate  = "board.card.create"
	AuditCardMove    = "board.card.move"
	AuditCardClose   = "board.card.complete"
	AuditCardReopen  = "board.card.reopen"
	AuditCardDelete  = "board.card.delete"
)

func Log(audits store.AuditStore, ctx context.Context, username, action, details string) {
	if audits == nil {
		return
	}
	_ = audits.Log(ctx, username, action, details)
}

package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context is what every repository method takes: the caller's context and,
// when the call is part of a larger unit of work, the open transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// WithTx keeps the caller's context and swaps in tx.
func (c Context) WithTx(tx *gorm.DB) Context {
	return Context{Ctx: c.Ctx, Tx: tx}
}

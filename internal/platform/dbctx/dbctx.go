package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos run against Tx when it is set, so a service can group several
// repo calls into one atomic commit.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func New(ctx context.Context) Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return Context{Ctx: ctx}
}

func WithTx(ctx context.Context, tx *gorm.DB) Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return Context{Ctx: ctx, Tx: tx}
}

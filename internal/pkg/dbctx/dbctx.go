package dbctx

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/reforest-backend/internal/pkg/ctxutil"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the transaction when one is bound, otherwise fallback, scoped to Ctx.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	t := c.Tx
	if t == nil {
		t = fallback
	}
	return t.WithContext(ctxutil.Default(c.Ctx))
}

// InTx reports whether a transaction is bound.
func (c Context) InTx() bool { return c.Tx != nil }

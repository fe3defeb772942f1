package aggregates

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
)

// TxRunner opens the transaction an aggregate write runs in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type TxOption func(*sql.TxOptions)

// WithIsolation pins the isolation level. sqlite only accepts the default and
// serializable levels, so callers set this for postgres.
func WithIsolation(level sql.IsolationLevel) TxOption {
	return func(o *sql.TxOptions) { o.Isolation = level }
}

type gormTxRunner struct {
	db   *gorm.DB
	opts *sql.TxOptions
}

// NewGormTxRunner runs each write in a GORM transaction opened with opts.
func NewGormTxRunner(db *gorm.DB, opts ...TxOption) TxRunner {
	r := &gormTxRunner{db: db}
	if len(opts) > 0 {
		r.opts = &sql.TxOptions{}
		for _, opt := range opts {
			opt(r.opts)
		}
	}
	return r
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	if r.opts == nil {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	}, r.opts)
}

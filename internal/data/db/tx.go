package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/aura-archiver/internal/pkg/dbctx"
)

// TxManager runs a function inside a single database transaction, handing
// it a dbctx.Context whose Tx routes every repo call through that
// transaction.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) WithinTransaction(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

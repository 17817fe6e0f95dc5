package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"khata/internal/port"
)

type txKey struct{}

type txManager struct {
	db *sqlx.DB
}

// NewTxManager creates a TxManager that keeps the open *sqlx.Tx in the context.
func NewTxManager(db *sqlx.DB) port.TxManager {
	return &txManager{db: db}
}

func (m *txManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("txManager.WithTx begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("txManager.WithTx commit: %w", err)
	}
	return nil
}

// conn returns the transaction carried by ctx, or db outside one.
func conn(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/event-sphere-org/event-service/internal/domain/transaction"
)

// pgTx は sqlx.Tx を transaction.Tx として扱う
type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) Commit() error   { return t.tx.Commit() }
func (t *pgTx) Rollback() error { return t.tx.Rollback() }

// TxManager は削除とアウトボックス書き込みを1つのトランザクションにまとめる
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin は READ COMMITTED のトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗しました: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

var _ transaction.Manager = (*TxManager)(nil)

// executor は tx がこのパッケージのトランザクションならそれを、そうでなければ db を返す
func executor(db *sqlx.DB, tx transaction.Tx) sqlx.ExtContext {
	if t, ok := tx.(*pgTx); ok && t != nil {
		return t.tx
	}
	return db
}

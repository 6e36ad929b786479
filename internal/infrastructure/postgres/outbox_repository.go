package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/event-sphere-org/event-service/internal/domain/notification"
	"github.com/event-sphere-org/event-service/internal/domain/transaction"
)

// staleProcessingAfter を過ぎても processing のままのエントリは中継プロセスの停止とみなして再取得する
const staleProcessingAfter = 5 * time.Minute

const outboxColumns = `id, kind, entity_id, status, retry_count, max_retries, last_error, next_retry_at, processed_at, created_at, updated_at`

type outboxRow struct {
	ID          int64      `db:"id"`
	Kind        string     `db:"kind"`
	EntityID    int64      `db:"entity_id"`
	Status      string     `db:"status"`
	RetryCount  int        `db:"retry_count"`
	MaxRetries  int        `db:"max_retries"`
	LastError   *string    `db:"last_error"`
	NextRetryAt *time.Time `db:"next_retry_at"`
	ProcessedAt *time.Time `db:"processed_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r *outboxRow) toEntity() *notification.OutboxEntry {
	var lastErr string
	if r.LastError != nil {
		lastErr = *r.LastError
	}
	return &notification.OutboxEntry{
		ID:          r.ID,
		Kind:        notification.Kind(r.Kind),
		EntityID:    r.EntityID,
		Status:      notification.OutboxStatus(r.Status),
		RetryCount:  r.RetryCount,
		MaxRetries:  r.MaxRetries,
		LastError:   lastErr,
		NextRetryAt: r.NextRetryAt,
		ProcessedAt: r.ProcessedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// OutboxRepository は通知アウトボックスのPostgreSQL実装
type OutboxRepository struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Save はエントリを保存する。tx が指定されていれば同じトランザクションで書き込む
func (r *OutboxRepository) Save(ctx context.Context, tx transaction.Tx, entry *notification.OutboxEntry) error {
	query := `
		INSERT INTO notification_outbox (kind, entity_id, status, retry_count, max_retries, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	args := []interface{}{
		string(entry.Kind), entry.EntityID, string(entry.Status), entry.RetryCount, entry.MaxRetries, entry.CreatedAt, entry.UpdatedAt,
	}

	if err := executor(r.db, tx).QueryRowxContext(ctx, query, args...).Scan(&entry.ID); err != nil {
		return fmt.Errorf("アウトボックス保存に失敗: %w", err)
	}
	return nil
}

// ClaimDue は送信対象のエントリを processing に更新して返す
func (r *OutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*notification.OutboxEntry, error) {
	query := `
		UPDATE notification_outbox
		SET status = 'processing', updated_at = $1
		WHERE id IN (
			SELECT id FROM notification_outbox
			WHERE status = 'pending'
			   OR (status = 'failed' AND next_retry_at <= $1)
			   OR (status = 'processing' AND updated_at < $2)
			ORDER BY created_at, id
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumns

	var rows []outboxRow
	if err := r.db.SelectContext(ctx, &rows, query, now, now.Add(-staleProcessingAfter), limit); err != nil {
		return nil, fmt.Errorf("アウトボックス取得に失敗: %w", err)
	}

	entries := make([]*notification.OutboxEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].toEntity()
	}
	return entries, nil
}

// Update はエントリの状態を更新する
func (r *OutboxRepository) Update(ctx context.Context, entry *notification.OutboxEntry) error {
	query := `
		UPDATE notification_outbox
		SET status = $1, retry_count = $2, last_error = $3, next_retry_at = $4, processed_at = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := r.db.ExecContext(ctx, query,
		string(entry.Status), entry.RetryCount, nullable(entry.LastError), entry.NextRetryAt, entry.ProcessedAt, entry.UpdatedAt, entry.ID,
	)
	if err != nil {
		return fmt.Errorf("アウトボックス更新に失敗: %w", err)
	}
	return requireAffected(result, notification.ErrOutboxNotFound)
}

// DeleteSentBefore は保持期間を過ぎた送信済みエントリを削除する
func (r *OutboxRepository) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notification_outbox WHERE status = 'sent' AND processed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("送信済みアウトボックスの削除に失敗: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除結果の確認に失敗: %w", err)
	}
	return n, nil
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ notification.OutboxRepository = (*OutboxRepository)(nil)

package notification

import (
	"context"
	"time"

	"github.com/event-sphere-org/event-service/internal/domain/transaction"
)

// OutboxStatus はアウトボックスエントリの状態
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusSent       OutboxStatus = "sent"
	OutboxStatusFailed     OutboxStatus = "failed"
	OutboxStatusDead       OutboxStatus = "dead"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// OutboxEntry は行の削除と同じトランザクションで保存される送信待ち通知
type OutboxEntry struct {
	ID          int64
	Kind        Kind
	EntityID    int64
	Status      OutboxStatus
	RetryCount  int
	MaxRetries  int
	LastError   string
	NextRetryAt *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOutboxEntry は通知からアウトボックスエントリを作成する
func NewOutboxEntry(n Notification) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		Kind:       n.Kind,
		EntityID:   n.ID,
		Status:     OutboxStatusPending,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Notification はエントリが表す通知を返す
func (e *OutboxEntry) Notification() Notification {
	return Notification{Kind: e.Kind, ID: e.EntityID}
}

// MarkSent は送信済みに遷移する
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.NextRetryAt = nil
	e.UpdatedAt = now
}

// MarkFailed は失敗を記録し、次回リトライ時刻を指数バックオフで設定する
// 上限に達した場合は dead に遷移する
func (e *OutboxEntry) MarkFailed(errMsg string) {
	now := time.Now()
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	// 1s, 2s, 4s, 8s, ...
	next := now.Add(DefaultBaseBackoff * time.Duration(1<<uint(e.RetryCount-1)))
	e.NextRetryAt = &next
}

// IsDead はリトライ上限に達したかを返す
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository はアウトボックスの永続化インターフェース
type OutboxRepository interface {
	// Save は tx 内でエントリを保存する
	Save(ctx context.Context, tx transaction.Tx, entry *OutboxEntry) error

	// ClaimDue は送信期限の来たエントリを processing に更新して返す
	// 複数インスタンスが同じエントリを取得しないよう行ロックをスキップする
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)

	// Update はエントリの状態を更新する
	Update(ctx context.Context, entry *OutboxEntry) error

	// DeleteSentBefore は送信済みエントリのうち before より古いものを削除する
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
}

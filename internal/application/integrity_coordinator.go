package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/domain/category"
	"github.com/event-sphere-org/event-service/internal/domain/event"
	"github.com/event-sphere-org/event-service/internal/domain/notification"
	"github.com/event-sphere-org/event-service/internal/domain/transaction"
	"github.com/event-sphere-org/event-service/internal/domain/user"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
	"github.com/event-sphere-org/event-service/internal/pkg/metrics"
)

// IntegrityCoordinator はユーザーサービスとの参照整合性を保つ
//
// ローカルでイベント・カテゴリを削除したときは削除通知を送り、
// ユーザーサービスからユーザー削除通知を受けたときはそのユーザーのイベントを一括削除する。
// 呼び出しごとに状態を持たないため、複数のリクエストから同時に使ってよい
type IntegrityCoordinator struct {
	eventRepo    event.Repository
	categoryRepo category.Repository
	publisher    notification.Publisher

	// アウトボックス方式のときのみ設定される
	outboxRepo notification.OutboxRepository
	txManager  transaction.Manager

	userCache user.Cache
	metrics   *metrics.Metrics
}

// CoordinatorOption は IntegrityCoordinator の任意設定
type CoordinatorOption func(*IntegrityCoordinator)

// WithOutbox は削除とアウトボックスへの書き込みを同一トランザクションで行うようにする
// 送信は NotificationRelayService が非同期に行う
func WithOutbox(repo notification.OutboxRepository, txManager transaction.Manager) CoordinatorOption {
	return func(c *IntegrityCoordinator) {
		c.outboxRepo = repo
		c.txManager = txManager
	}
}

// WithUserCache はユーザー削除時に無効化するキャッシュを設定する
func WithUserCache(cache user.Cache) CoordinatorOption {
	return func(c *IntegrityCoordinator) {
		c.userCache = cache
	}
}

// WithCoordinatorMetrics はメトリクスを設定する
func WithCoordinatorMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *IntegrityCoordinator) {
		c.metrics = m
	}
}

func NewIntegrityCoordinator(
	eventRepo event.Repository,
	categoryRepo category.Repository,
	publisher notification.Publisher,
	opts ...CoordinatorOption,
) *IntegrityCoordinator {
	c := &IntegrityCoordinator{
		eventRepo:    eventRepo,
		categoryRepo: categoryRepo,
		publisher:    publisher,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UsesOutbox はアウトボックス方式で動作しているかを返す
func (c *IntegrityCoordinator) UsesOutbox() bool {
	return c.outboxRepo != nil && c.txManager != nil
}

// OnLocalEventDeleted はイベントを削除し、削除通知を送る
func (c *IntegrityCoordinator) OnLocalEventDeleted(ctx context.Context, id int64) error {
	if _, err := c.eventRepo.GetByID(ctx, id); err != nil {
		return err
	}

	return c.deleteAndNotify(ctx, notification.Deleted(notification.KindEvent, id), func(tx transaction.Tx) error {
		return c.eventRepo.Delete(ctx, tx, id)
	})
}

// OnLocalCategoryDeleted はイベントから参照されていないカテゴリを削除し、削除通知を送る
// 参照が残っている場合は何も変更せず ErrCategoryHasEvents を返す
func (c *IntegrityCoordinator) OnLocalCategoryDeleted(ctx context.Context, id int64) error {
	if _, err := c.categoryRepo.GetByID(ctx, id); err != nil {
		return err
	}

	hasEvents, err := c.eventRepo.ExistsByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("カテゴリ参照の確認に失敗: %w", err)
	}
	if hasEvents {
		logger.Info("イベントが残っているためカテゴリを削除しません", zap.Int64("category_id", id))
		return category.ErrCategoryHasEvents
	}

	// 確認後に挿入されたイベントは外部キー制約で検出される
	return c.deleteAndNotify(ctx, notification.Deleted(notification.KindCategory, id), func(tx transaction.Tx) error {
		return c.categoryRepo.Delete(ctx, tx, id)
	})
}

// OnRemoteUserDeleted は削除されたユーザーが作成したイベントを一括削除し、削除件数を返す
// 同じ通知が再配送されても 0 件削除の成功になる
func (c *IntegrityCoordinator) OnRemoteUserDeleted(ctx context.Context, userID int64) (int64, error) {
	deleted, err := c.eventRepo.DeleteByCreator(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("ユーザー %d のイベント削除に失敗: %w", userID, err)
	}
	c.metrics.AddCascadeDeleted(deleted)

	if c.userCache != nil {
		if err := c.userCache.Invalidate(ctx, userID); err != nil {
			logger.Warn("ユーザーキャッシュの無効化に失敗しました", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	logger.Info("削除されたユーザーのイベントを削除しました",
		zap.Int64("user_id", userID),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}

func (c *IntegrityCoordinator) deleteAndNotify(ctx context.Context, n notification.Notification, del func(tx transaction.Tx) error) error {
	if c.UsesOutbox() {
		return c.deleteWithOutbox(ctx, n, del)
	}
	return c.deleteDirect(ctx, n, del)
}

// deleteDirect は通知を先に送ってから削除する
// 送信に失敗した場合は削除しない。送信後の削除失敗は通知だけが届いた状態になる
func (c *IntegrityCoordinator) deleteDirect(ctx context.Context, n notification.Notification, del func(tx transaction.Tx) error) error {
	log := logger.With(zap.String("kind", string(n.Kind)), zap.Int64("id", n.ID))

	if err := c.publisher.Publish(ctx, n); err != nil {
		c.metrics.ObserveNotification(string(n.Kind), metrics.ResultFailed)
		log.Error("削除通知の送信に失敗したため削除を中止します", zap.Error(err))
		return err
	}
	c.metrics.ObserveNotification(string(n.Kind), metrics.ResultPublished)

	if err := del(nil); err != nil {
		log.Warn("削除通知の送信後に削除が失敗しました", zap.Error(err))
		return err
	}

	log.Info("削除して削除通知を送信しました")
	return nil
}

// deleteWithOutbox は削除とアウトボックスへの書き込みを同一トランザクションで行う
func (c *IntegrityCoordinator) deleteWithOutbox(ctx context.Context, n notification.Notification, del func(tx transaction.Tx) error) error {
	log := logger.With(zap.String("kind", string(n.Kind)), zap.Int64("id", n.ID))

	entry := notification.NewOutboxEntry(n)
	err := transaction.Run(ctx, c.txManager, func(tx transaction.Tx) error {
		if err := del(tx); err != nil {
			return err
		}
		return c.outboxRepo.Save(ctx, tx, entry)
	})
	if err != nil {
		log.Warn("削除とアウトボックス登録に失敗しました", zap.Error(err))
		return err
	}
	c.metrics.ObserveNotification(string(n.Kind), metrics.ResultEnqueued)

	log.Info("削除して削除通知をアウトボックスに登録しました", zap.Int64("outbox_id", entry.ID))
	return nil
}

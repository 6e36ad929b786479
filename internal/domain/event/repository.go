package event

import (
	"context"

	"github.com/event-sphere-org/event-service/internal/domain/transaction"
)

// Repository はイベントリポジトリのインターフェース
type Repository interface {
	// Create は新しいイベントを作成する
	Create(ctx context.Context, event *Event) error

	// GetByID はIDからイベントを取得する
	GetByID(ctx context.Context, id int64) (*Event, error)

	// List はイベント一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Event, error)

	// ListByCategory はカテゴリに属するイベント一覧を取得する（upcoming=true なら今日以降のみ、開催日昇順）
	ListByCategory(ctx context.Context, categoryID int64, upcoming bool, limit, offset int) ([]*Event, error)

	// ListByCreator は作成者のイベント一覧を取得する
	ListByCreator(ctx context.Context, creatorID int64, limit, offset int) ([]*Event, error)

	// ExistsByTitle は同じタイトルのイベントが存在するかを返す
	ExistsByTitle(ctx context.Context, title string) (bool, error)

	// ExistsByCategory はカテゴリを参照するイベントが存在するかを返す
	ExistsByCategory(ctx context.Context, categoryID int64) (bool, error)

	// Update はイベントを更新する（楽観的ロック）
	Update(ctx context.Context, event *Event) error

	// Delete はイベントを削除する（tx が nil ならトランザクション外で実行）
	Delete(ctx context.Context, tx transaction.Tx, id int64) error

	// DeleteByCreator は作成者のイベントを一括削除し、削除件数を返す
	DeleteByCreator(ctx context.Context, creatorID int64) (int64, error)
}

package category

import (
	"context"

	"github.com/event-sphere-org/event-service/internal/domain/transaction"
)

// Repository はカテゴリリポジトリのインターフェース
type Repository interface {
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, id int64) (*Category, error)
	GetByName(ctx context.Context, name string) (*Category, error)
	List(ctx context.Context, limit, offset int) ([]*Category, error)
	ExistsByName(ctx context.Context, name string) (bool, error)

	// Update はカテゴリを更新する（楽観的ロック）
	Update(ctx context.Context, category *Category) error

	// Delete はカテゴリを削除する（tx が nil ならトランザクション外で実行）
	// 参照するイベントが残っている場合は ErrCategoryHasEvents を返す
	Delete(ctx context.Context, tx transaction.Tx, id int64) error
}

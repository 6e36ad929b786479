package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/event-sphere-org/event-service/internal/domain/category"
	"github.com/event-sphere-org/event-service/internal/domain/transaction"
)

const categoryColumns = `id, name, created_at, updated_at, version`

type categoryRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Version   int       `db:"version"`
}

func (r *categoryRow) toEntity() *category.Category {
	return &category.Category{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Version:   r.Version,
	}
}

// CategoryRepository はカテゴリリポジトリのPostgreSQL実装
type CategoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	query := `INSERT INTO categories (name, created_at, updated_at, version) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, c.Name, c.CreatedAt, c.UpdatedAt, c.Version).Scan(&c.ID); err != nil {
		return mapCategoryWriteError("カテゴリ作成に失敗", err)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*category.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = $1`, name)
}

func (r *CategoryRepository) getOne(ctx context.Context, query string, arg interface{}) (*category.Category, error) {
	var row categoryRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, category.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("カテゴリ取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *CategoryRepository) List(ctx context.Context, limit, offset int) ([]*category.Category, error) {
	var rows []categoryRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+categoryColumns+` FROM categories ORDER BY id LIMIT $1 OFFSET $2`, limit, offset); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧取得に失敗: %w", err)
	}
	categories := make([]*category.Category, len(rows))
	for i := range rows {
		categories[i] = rows[i].toEntity()
	}
	return categories, nil
}

func (r *CategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM categories WHERE name = $1)`, name); err != nil {
		return false, fmt.Errorf("カテゴリ名の重複確認に失敗: %w", err)
	}
	return exists, nil
}

// Update はカテゴリを更新する（楽観的ロック）
func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	now := time.Now()
	result, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = $1, updated_at = $2, version = version + 1 WHERE id = $3 AND version = $4`,
		c.Name, now, c.ID, c.Version,
	)
	if err != nil {
		return mapCategoryWriteError("カテゴリ更新に失敗", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if rowsAffected == 0 {
		return category.ErrOptimisticLockConflict
	}
	c.UpdatedAt = now
	c.Version++
	return nil
}

// Delete はカテゴリを削除する
// 外部キー制約によりイベントが残っている場合は ErrCategoryHasEvents を返す
func (r *CategoryRepository) Delete(ctx context.Context, tx transaction.Tx, id int64) error {
	query := `DELETE FROM categories WHERE id = $1`

	result, err := executor(r.db, tx).ExecContext(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return category.ErrCategoryHasEvents
		}
		return fmt.Errorf("カテゴリ削除に失敗: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の確認に失敗: %w", err)
	}
	if rowsAffected == 0 {
		return category.ErrCategoryNotFound
	}
	return nil
}

func mapCategoryWriteError(msg string, err error) error {
	switch {
	case isUniqueViolation(err):
		return category.ErrNameAlreadyExists
	case isInvalidData(err):
		return fmt.Errorf("%s: %w", msg, category.ErrCategoryNotValid)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

var _ category.Repository = (*CategoryRepository)(nil)

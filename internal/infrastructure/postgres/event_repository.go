package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/event-sphere-org/event-service/internal/domain/category"
	"github.com/event-sphere-org/event-service/internal/domain/event"
	"github.com/event-sphere-org/event-service/internal/domain/transaction"
)

const eventColumns = `id, creator_id, category_id, title, description, image_url, location, event_date, event_time, created_at, updated_at, version`

// eventRow はDBの行を表す構造体
type eventRow struct {
	ID          int64     `db:"id"`
	CreatorID   int64     `db:"creator_id"`
	CategoryID  int64     `db:"category_id"`
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	ImageURL    *string   `db:"image_url"`
	Location    string    `db:"location"`
	EventDate   time.Time `db:"event_date"`
	EventTime   time.Time `db:"event_time"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	Version     int       `db:"version"`
}

// toEntity はeventRowをEventエンティティに変換する
func (r *eventRow) toEntity() *event.Event {
	var desc, imageURL string
	if r.Description != nil {
		desc = *r.Description
	}
	if r.ImageURL != nil {
		imageURL = *r.ImageURL
	}
	return &event.Event{
		ID:          r.ID,
		CreatorID:   r.CreatorID,
		CategoryID:  r.CategoryID,
		Title:       r.Title,
		Description: desc,
		ImageURL:    imageURL,
		Location:    r.Location,
		Date:        time.Date(r.EventDate.Year(), r.EventDate.Month(), r.EventDate.Day(), 0, 0, 0, 0, time.UTC),
		Time:        r.EventTime.Format(event.TimeLayout),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Version:     r.Version,
	}
}

func toEvents(rows []eventRow) []*event.Event {
	events := make([]*event.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].toEntity()
	}
	return events
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EventRepository はイベントリポジトリのPostgreSQL実装
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository はEventRepositoryを作成する
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create は新しいイベントを作成する
func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	query := `
		INSERT INTO events (creator_id, category_id, title, description, image_url, location, event_date, event_time, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		e.CreatorID, e.CategoryID, e.Title, nullable(e.Description), nullable(e.ImageURL), e.Location,
		e.Date.Format(event.DateLayout), e.Time, e.CreatedAt, e.UpdatedAt, e.Version,
	).Scan(&e.ID)
	if err != nil {
		return mapEventWriteError("イベント作成に失敗しました", err)
	}
	return nil
}

// GetByID はIDからイベントを取得する
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	var row eventRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベント取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// List はイベント一覧を取得する
func (r *EventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY id LIMIT $1 OFFSET $2`

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("イベント一覧取得に失敗しました: %w", err)
	}
	return toEvents(rows), nil
}

// ListByCategory はカテゴリに属するイベント一覧を取得する
func (r *EventRepository) ListByCategory(ctx context.Context, categoryID int64, upcoming bool, limit, offset int) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE category_id = $1 ORDER BY id LIMIT $2 OFFSET $3`
	if upcoming {
		query = `SELECT ` + eventColumns + ` FROM events WHERE category_id = $1 AND event_date >= CURRENT_DATE ORDER BY event_date ASC, event_time ASC, id LIMIT $2 OFFSET $3`
	}

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, categoryID, limit, offset); err != nil {
		return nil, fmt.Errorf("カテゴリのイベント一覧取得に失敗しました: %w", err)
	}
	return toEvents(rows), nil
}

// ListByCreator は作成者のイベント一覧を取得する
func (r *EventRepository) ListByCreator(ctx context.Context, creatorID int64, limit, offset int) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE creator_id = $1 ORDER BY id LIMIT $2 OFFSET $3`

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, creatorID, limit, offset); err != nil {
		return nil, fmt.Errorf("作成者のイベント一覧取得に失敗しました: %w", err)
	}
	return toEvents(rows), nil
}

// ExistsByTitle は同じタイトルのイベントが存在するかを返す
func (r *EventRepository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM events WHERE title = $1)`, title); err != nil {
		return false, fmt.Errorf("タイトルの重複確認に失敗しました: %w", err)
	}
	return exists, nil
}

// ExistsByCategory はカテゴリを参照するイベントが存在するかを返す
func (r *EventRepository) ExistsByCategory(ctx context.Context, categoryID int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM events WHERE category_id = $1)`, categoryID); err != nil {
		return false, fmt.Errorf("カテゴリ参照の確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Update はイベントを更新する（楽観的ロック）
func (r *EventRepository) Update(ctx context.Context, e *event.Event) error {
	query := `
		UPDATE events
		SET category_id = $1, title = $2, description = $3, image_url = $4, location = $5,
		    event_date = $6, event_time = $7, updated_at = $8, version = version + 1
		WHERE id = $9 AND version = $10
	`
	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		e.CategoryID, e.Title, nullable(e.Description), nullable(e.ImageURL), e.Location,
		e.Date.Format(event.DateLayout), e.Time, now, e.ID, e.Version,
	)
	if err != nil {
		return mapEventWriteError("イベント更新に失敗しました", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return event.ErrOptimisticLockConflict
	}

	e.UpdatedAt = now
	e.Version++
	return nil
}

// Delete はイベントを削除する
func (r *EventRepository) Delete(ctx context.Context, tx transaction.Tx, id int64) error {
	query := `DELETE FROM events WHERE id = $1`

	result, err := executor(r.db, tx).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("イベント削除に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return event.ErrEventNotFound
	}
	return nil
}

// DeleteByCreator は作成者のイベントを一括削除する
// 該当がなくてもエラーにはしない
func (r *EventRepository) DeleteByCreator(ctx context.Context, creatorID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE creator_id = $1`, creatorID)
	if err != nil {
		return 0, fmt.Errorf("作成者のイベント一括削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	return n, nil
}

// mapEventWriteError は書き込み時のDBエラーをドメインエラーに変換する
func mapEventWriteError(msg string, err error) error {
	switch {
	case isUniqueViolation(err):
		return event.ErrTitleAlreadyExists
	case isForeignKeyViolation(err):
		return category.ErrCategoryNotFound
	case isInvalidData(err):
		return fmt.Errorf("%s: %w", msg, event.ErrEventNotValid)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

// インターフェースを満たしているか確認
var _ event.Repository = (*EventRepository)(nil)

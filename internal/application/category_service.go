package application

import (
	"context"
	"fmt"

	"github.com/event-sphere-org/event-service/internal/domain/category"
	"github.com/event-sphere-org/event-service/internal/domain/event"
)

// CategoryDeleter はカテゴリ削除と削除通知をまとめて行う
type CategoryDeleter interface {
	OnLocalCategoryDeleted(ctx context.Context, id int64) error
}

type CategoryService struct {
	categoryRepo category.Repository
	eventRepo    event.Repository
	deleter      CategoryDeleter
}

func NewCategoryService(categoryRepo category.Repository, eventRepo event.Repository, deleter CategoryDeleter) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo, eventRepo: eventRepo, deleter: deleter}
}

func (s *CategoryService) CreateCategory(ctx context.Context, name string) (*category.Category, error) {
	c := category.NewCategory(name)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}

	exists, err := s.categoryRepo.ExistsByName(ctx, c.Name)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ名の重複確認に失敗しました: %w", err)
	}
	if exists {
		return nil, category.ErrNameAlreadyExists
	}

	if err := s.categoryRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("カテゴリ作成に失敗しました: %w", err)
	}
	return c, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id int64) (*category.Category, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

func (s *CategoryService) GetCategoryByName(ctx context.Context, name string) (*category.Category, error) {
	return s.categoryRepo.GetByName(ctx, name)
}

func (s *CategoryService) ListCategories(ctx context.Context, page, size int) ([]*category.Category, error) {
	limit, offset := pageBounds(page, size)
	return s.categoryRepo.List(ctx, limit, offset)
}

// CategoryWithEvents はカテゴリと所属イベントの1ページ分
type CategoryWithEvents struct {
	Category *category.Category
	Events   []*event.Event
	Page     int
	Size     int
	Upcoming bool
}

// GetCategoryWithEvents はカテゴリと所属イベントを取得する
// upcoming が true の場合は今日以降のイベントのみを開催日の昇順で返す
func (s *CategoryService) GetCategoryWithEvents(ctx context.Context, id int64, page, size int, upcoming bool) (*CategoryWithEvents, error) {
	c, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	page, size = NormalizePage(page, size)
	limit, offset := pageBounds(page, size)
	events, err := s.eventRepo.ListByCategory(ctx, id, upcoming, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("カテゴリのイベント取得に失敗しました: %w", err)
	}

	return &CategoryWithEvents{Category: c, Events: events, Page: page, Size: size, Upcoming: upcoming}, nil
}

type UpdateCategoryInput struct {
	Name *string
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, input UpdateCategoryInput) (*category.Category, error) {
	c, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name == nil || !c.Rename(*input.Name) {
		return c, nil
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}

	exists, err := s.categoryRepo.ExistsByName(ctx, c.Name)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ名の重複確認に失敗しました: %w", err)
	}
	if exists {
		return nil, category.ErrNameAlreadyExists
	}

	if err := s.categoryRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	return s.deleter.OnLocalCategoryDeleted(ctx, id)
}

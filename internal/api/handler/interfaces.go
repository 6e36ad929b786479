package handler

import (
	"context"

	"github.com/event-sphere-org/event-service/internal/application"
	"github.com/event-sphere-org/event-service/internal/domain/category"
	"github.com/event-sphere-org/event-service/internal/domain/event"
	"github.com/event-sphere-org/event-service/internal/domain/user"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*application.EventDetail, error)
	GetEvent(ctx context.Context, id int64) (*application.EventDetail, error)
	ListEvents(ctx context.Context, page, size int) ([]*event.Event, error)
	ListEventsByCreator(ctx context.Context, creatorID int64, page, size int) ([]*event.Event, error)
	UpdateEvent(ctx context.Context, id int64, input application.UpdateEventInput) (*application.EventDetail, error)
	DeleteEvent(ctx context.Context, id int64) error
	GetCreator(ctx context.Context, eventID int64) (*user.User, error)
}

// CategoryServiceInterface はカテゴリサービスのインターフェース
type CategoryServiceInterface interface {
	CreateCategory(ctx context.Context, name string) (*category.Category, error)
	GetCategory(ctx context.Context, id int64) (*category.Category, error)
	ListCategories(ctx context.Context, page, size int) ([]*category.Category, error)
	GetCategoryWithEvents(ctx context.Context, id int64, page, size int, upcoming bool) (*application.CategoryWithEvents, error)
	UpdateCategory(ctx context.Context, id int64, input application.UpdateCategoryInput) (*category.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

var (
	_ EventServiceInterface    = (*application.EventService)(nil)
	_ CategoryServiceInterface = (*application.CategoryService)(nil)
)

package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/event-sphere-org/event-service/internal/domain/category"
	"github.com/event-sphere-org/event-service/internal/domain/event"
	"github.com/event-sphere-org/event-service/internal/domain/user"
)

// EventDeleter はイベント削除と削除通知をまとめて行う
type EventDeleter interface {
	OnLocalEventDeleted(ctx context.Context, id int64) error
}

type EventService struct {
	eventRepo    event.Repository
	categoryRepo category.Repository
	users        user.Lookup
	deleter      EventDeleter
	now          func() time.Time
}

func NewEventService(eventRepo event.Repository, categoryRepo category.Repository, users user.Lookup, deleter EventDeleter) *EventService {
	return &EventService{
		eventRepo:    eventRepo,
		categoryRepo: categoryRepo,
		users:        users,
		deleter:      deleter,
		now:          time.Now,
	}
}

type CreateEventInput struct {
	CreatorID   int64
	Title       string
	Description string
	ImageURL    string
	Location    string
	Date        time.Time
	Time        string
	Category    string // カテゴリ名
}

// EventDetail はイベントと所属カテゴリ
type EventDetail struct {
	Event    *event.Event
	Category *category.Category
}

func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*EventDetail, error) {
	e := event.NewEvent(input.CreatorID, 0, input.Title, input.Description, input.ImageURL, input.Location, input.Date, input.Time)
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := e.ValidateSchedule(s.now()); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}

	exists, err := s.eventRepo.ExistsByTitle(ctx, e.Title)
	if err != nil {
		return nil, fmt.Errorf("タイトルの重複確認に失敗しました: %w", err)
	}
	if exists {
		return nil, event.ErrTitleAlreadyExists
	}

	c, err := s.categoryRepo.GetByName(ctx, input.Category)
	if err != nil {
		return nil, err
	}
	e.CategoryID = c.ID

	// 作成者の存在確認は作成時のみ行う
	if _, err := s.users.FindByID(ctx, input.CreatorID); err != nil {
		return nil, err
	}

	if err := s.eventRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return &EventDetail{Event: e, Category: c}, nil
}

func (s *EventService) GetEvent(ctx context.Context, id int64) (*EventDetail, error) {
	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := s.categoryRepo.GetByID(ctx, e.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	return &EventDetail{Event: e, Category: c}, nil
}

func (s *EventService) ListEvents(ctx context.Context, page, size int) ([]*event.Event, error) {
	limit, offset := pageBounds(page, size)
	return s.eventRepo.List(ctx, limit, offset)
}

func (s *EventService) ListEventsByCreator(ctx context.Context, creatorID int64, page, size int) ([]*event.Event, error) {
	limit, offset := pageBounds(page, size)
	return s.eventRepo.ListByCreator(ctx, creatorID, limit, offset)
}

type UpdateEventInput struct {
	event.Patch
	Category *string // カテゴリ名。nil なら変更しない
}

func (s *EventService) UpdateEvent(ctx context.Context, id int64, input UpdateEventInput) (*EventDetail, error) {
	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.TitleChanged(e.Title) {
		exists, err := s.eventRepo.ExistsByTitle(ctx, strings.TrimSpace(*input.Title))
		if err != nil {
			return nil, fmt.Errorf("タイトルの重複確認に失敗しました: %w", err)
		}
		if exists {
			return nil, event.ErrTitleAlreadyExists
		}
	}

	var c *category.Category
	if input.Category != nil {
		c, err = s.categoryRepo.GetByName(ctx, *input.Category)
		if err != nil {
			return nil, err
		}
		input.CategoryID = &c.ID
	}

	e.Apply(input.Patch)
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if input.Date != nil {
		if err := e.ValidateSchedule(s.now()); err != nil {
			return nil, fmt.Errorf("バリデーションエラー: %w", err)
		}
	}

	if err := s.eventRepo.Update(ctx, e); err != nil {
		return nil, err
	}

	if c == nil {
		c, err = s.categoryRepo.GetByID(ctx, e.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
		}
	}
	return &EventDetail{Event: e, Category: c}, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	return s.deleter.OnLocalEventDeleted(ctx, id)
}

// GetCreator はイベント作成者の表示用情報をユーザーサービスから取得する
func (s *EventService) GetCreator(ctx context.Context, eventID int64) (*user.User, error) {
	e, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, e.CreatorID)
}

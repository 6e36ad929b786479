package event

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DateLayout は開催日の形式
	DateLayout = "2006-01-02"
	// TimeLayout は開始時刻の形式
	TimeLayout = "15:04:05"
)

// Event はイベントエンティティを表す
type Event struct {
	ID          int64
	CreatorID   int64 // ユーザーサービスが所有するユーザーへの弱参照
	CategoryID  int64
	Title       string
	Description string
	ImageURL    string
	Location    string
	Date        time.Time
	Time        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int // 楽観的ロック用
}

// NewEvent は新しいイベントを作成する
func NewEvent(creatorID, categoryID int64, title, description, imageURL, location string, date time.Time, startTime string) *Event {
	now := time.Now()
	return &Event{
		CreatorID:   creatorID,
		CategoryID:  categoryID,
		Title:       strings.TrimSpace(title),
		Description: description,
		ImageURL:    imageURL,
		Location:    location,
		Date:        truncateToDate(date),
		Time:        startTime,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     0,
	}
}

// Validate はイベントの検証を行う
func (e *Event) Validate() error {
	if n := utf8.RuneCountInString(e.Title); n < 3 || n > 50 {
		return ErrInvalidTitleLength
	}
	if utf8.RuneCountInString(e.Description) > 300 {
		return ErrDescriptionTooLong
	}
	if utf8.RuneCountInString(e.Location) < 3 {
		return ErrLocationTooShort
	}
	if _, err := time.Parse(TimeLayout, e.Time); err != nil {
		return ErrInvalidTime
	}
	if e.Date.IsZero() {
		return ErrDateRequired
	}
	return nil
}

// ValidateSchedule は開催日が now の翌日以降であることを検証する
func (e *Event) ValidateSchedule(now time.Time) error {
	if !truncateToDate(e.Date).After(truncateToDate(now)) {
		return ErrDateNotInFuture
	}
	return nil
}

// IsUpcoming は開催日が今日以降かどうかを返す
func (e *Event) IsUpcoming(now time.Time) bool {
	return !truncateToDate(e.Date).Before(truncateToDate(now))
}

// Patch は部分更新の内容。nil のフィールドは既存値を保持する
type Patch struct {
	Title       *string
	Description *string
	ImageURL    *string
	Location    *string
	Date        *time.Time
	Time        *string
	CategoryID  *int64
}

// TitleChanged はパッチによってタイトルが変わるかを返す
func (p Patch) TitleChanged(current string) bool {
	return p.Title != nil && strings.TrimSpace(*p.Title) != current
}

// Apply はパッチの非nilフィールドだけをイベントに反映する
// 監査用タイムスタンプはここでは変更しない
func (e *Event) Apply(p Patch) {
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.ImageURL != nil {
		e.ImageURL = *p.ImageURL
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Date != nil {
		e.Date = truncateToDate(*p.Date)
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

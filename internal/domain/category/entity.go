package category

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Category はカテゴリエンティティを表す
// 所属イベントはエンティティに保持せず、必要なときにページ単位で取得する
type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// NewCategory は新しいカテゴリを作成する
func NewCategory(name string) *Category {
	now := time.Now()
	return &Category{
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate はカテゴリの検証を行う
func (c *Category) Validate() error {
	if n := utf8.RuneCountInString(c.Name); n < 3 || n > 50 {
		return ErrInvalidNameLength
	}
	return nil
}

// Rename は名前を変更する。変更があった場合 true を返す
func (c *Category) Rename(name string) bool {
	name = strings.TrimSpace(name)
	if name == c.Name {
		return false
	}
	c.Name = name
	return true
}

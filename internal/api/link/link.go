// Package link はレスポンスに付与するハイパーメディアリンクを組み立てる
// HTTPリクエストには依存せず、エンティティとルート表だけから計算する
package link

import (
	"net/url"
	"strconv"
	"strings"
)

// リンクの関係名
const (
	RelSelf             = "self"
	RelGetEvent         = "get-event"
	RelCreateEvent      = "create-event"
	RelGetAllEvents     = "get-all-events"
	RelGetCategory      = "get-category"
	RelCreateCategory   = "create-category"
	RelGetAllCategories = "get-all-categories"
	RelCategory         = "category"
	RelCategoryEvents   = "events"
	RelCreator          = "creator"
	RelNext             = "next"
	RelPrev             = "prev"
)

// DefaultPageSize は一覧リンクに付けるページサイズ
const DefaultPageSize = 10

// Link は1つのリンク
type Link struct {
	Href string `json:"href"`
}

// Links は関係名からリンクへの対応
type Links map[string]Link

// Routes はリンク生成に使うルート表
type Routes struct {
	Events     string // 例: /v1/events
	Categories string // 例: /v1/categories
}

// DefaultRoutes は /v1 配下のルート表
var DefaultRoutes = Routes{
	Events:     "/v1/events",
	Categories: "/v1/categories",
}

// Page はページ付き一覧の位置
type Page struct {
	Number int
	Size   int
	// Count は取得できた件数。Size と同じなら次のページがある可能性がある
	Count int
}

// EventRef はリンク計算に必要なイベントの属性
type EventRef struct {
	ID         int64
	CategoryID int64
}

// CategoryRef はリンク計算に必要なカテゴリの属性
type CategoryRef struct {
	ID int64
}

// ForEvent は単一イベントのリンクを返す
func ForEvent(r Routes, e EventRef) Links {
	self := r.event(e.ID)
	return Links{
		RelSelf:         {Href: self},
		RelGetAllEvents: {Href: withPage(r.Events, 0, DefaultPageSize, nil)},
		RelCreateEvent:  {Href: r.Events},
		RelCategory:     {Href: r.category(e.CategoryID)},
		RelCreator:      {Href: self + "/creator"},
	}
}

// ForEventItem は一覧内のイベントのリンクを返す
func ForEventItem(r Routes, e EventRef) Links {
	return Links{RelGetEvent: {Href: r.event(e.ID)}}
}

// ForEventList はイベント一覧のリンクを返す
// query はページ以外の絞り込み条件で、next/prev にも引き継ぐ
func ForEventList(r Routes, p Page, query url.Values) Links {
	links := pageLinks(r.Events, p, query)
	links[RelCreateEvent] = Link{Href: r.Events}
	return links
}

// ForCategory は単一カテゴリのリンクを返す
func ForCategory(r Routes, c CategoryRef) Links {
	return Links{
		RelSelf:             {Href: r.category(c.ID)},
		RelGetAllCategories: {Href: withPage(r.Categories, 0, DefaultPageSize, nil)},
		RelCreateCategory:   {Href: r.Categories},
		RelCategoryEvents:   {Href: withPage(r.categoryEvents(c.ID), 0, DefaultPageSize, nil)},
	}
}

// ForCategoryItem は一覧内のカテゴリのリンクを返す
func ForCategoryItem(r Routes, c CategoryRef) Links {
	return Links{RelGetCategory: {Href: r.category(c.ID)}}
}

// ForCategoryList はカテゴリ一覧のリンクを返す
func ForCategoryList(r Routes, p Page) Links {
	links := pageLinks(r.Categories, p, nil)
	links[RelCreateCategory] = Link{Href: r.Categories}
	return links
}

// ForCategoryEvents はカテゴリ所属イベント一覧のリンクを返す
func ForCategoryEvents(r Routes, c CategoryRef, p Page, upcoming bool) Links {
	var query url.Values
	if upcoming {
		query = url.Values{"upcoming": {"true"}}
	}
	links := pageLinks(r.categoryEvents(c.ID), p, query)
	links[RelGetCategory] = Link{Href: r.category(c.ID)}
	links[RelGetAllCategories] = Link{Href: withPage(r.Categories, 0, DefaultPageSize, nil)}
	return links
}

func pageLinks(base string, p Page, query url.Values) Links {
	links := Links{RelSelf: {Href: withPage(base, p.Number, p.Size, query)}}
	if p.Size > 0 && p.Count >= p.Size {
		links[RelNext] = Link{Href: withPage(base, p.Number+1, p.Size, query)}
	}
	if p.Number > 0 {
		links[RelPrev] = Link{Href: withPage(base, p.Number-1, p.Size, query)}
	}
	return links
}

func withPage(base string, page, size int, query url.Values) string {
	q := url.Values{}
	for k, vs := range query {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return base + "?" + q.Encode()
}

func (r Routes) event(id int64) string {
	return join(r.Events, strconv.FormatInt(id, 10))
}

func (r Routes) category(id int64) string {
	return join(r.Categories, strconv.FormatInt(id, 10))
}

func (r Routes) categoryEvents(id int64) string {
	return r.category(id) + "/events"
}

func join(base, elem string) string {
	return strings.TrimSuffix(base, "/") + "/" + elem
}

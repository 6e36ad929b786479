package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/event-sphere-org/event-service/internal/api"
	"github.com/event-sphere-org/event-service/internal/api/link"
	"github.com/event-sphere-org/event-service/internal/application"
	"github.com/event-sphere-org/event-service/internal/domain/category"
	"github.com/event-sphere-org/event-service/internal/domain/event"
	"github.com/event-sphere-org/event-service/internal/domain/user"
)

type EventHandler struct {
	eventService EventServiceInterface
	routes       link.Routes
}

func NewEventHandler(eventService EventServiceInterface, routes link.Routes) *EventHandler {
	return &EventHandler{eventService: eventService, routes: routes}
}

type CreateEventRequest struct {
	CreatorID   int64   `json:"creatorId" validate:"required,gt=0" example:"7"`
	Title       string  `json:"title" validate:"required,min=3,max=50" example:"Jazz Night"`
	Description string  `json:"description" validate:"max=300" example:"スムースジャズの夕べ"`
	ImageURL    string  `json:"imageUrl" validate:"omitempty,url" example:"https://example.com/jazz.png"`
	Location    string  `json:"location" validate:"required,min=3" example:"Blue Note"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02" example:"2026-12-24"`
	Time        string  `json:"time" validate:"required,datetime=15:04:05" example:"19:00:00"`
	Category    string  `json:"category" validate:"required" example:"Music"`
	CreatedAt   *string `json:"createdAt" validate:"isdefault"`
	UpdatedAt   *string `json:"updatedAt" validate:"isdefault"`
}

// UpdateEventRequest は部分更新。指定されたフィールドだけを変更する
type UpdateEventRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=50"`
	Description *string `json:"description" validate:"omitempty,max=300"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url"`
	Location    *string `json:"location" validate:"omitempty,min=3"`
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time        *string `json:"time" validate:"omitempty,datetime=15:04:05"`
	Category    *string `json:"category" validate:"omitempty,min=3"`
	CreatedAt   *string `json:"createdAt" validate:"isdefault"`
	UpdatedAt   *string `json:"updatedAt" validate:"isdefault"`
}

type CategorySummary struct {
	ID   int64  `json:"id" example:"1"`
	Name string `json:"name" example:"Music"`
}

type EventResponse struct {
	ID          int64            `json:"id" example:"42"`
	CreatorID   int64            `json:"creatorId" example:"7"`
	CategoryID  int64            `json:"categoryId" example:"1"`
	Category    *CategorySummary `json:"category,omitempty"`
	Title       string           `json:"title" example:"Jazz Night"`
	Description string           `json:"description" example:"スムースジャズの夕べ"`
	ImageURL    string           `json:"imageUrl,omitempty" example:"https://example.com/jazz.png"`
	Location    string           `json:"location" example:"Blue Note"`
	Date        string           `json:"date" example:"2026-12-24"`
	Time        string           `json:"time" example:"19:00:00"`
	CreatedAt   string           `json:"createdAt" example:"2026-10-17T10:00:00Z"`
	UpdatedAt   string           `json:"updatedAt" example:"2026-10-17T10:00:00Z"`
	Links       link.Links       `json:"_links,omitempty"`
}

type EventListResponse struct {
	Items []*EventResponse `json:"items"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
	Links link.Links       `json:"_links"`
}

type UserResponse struct {
	ID        int64      `json:"id" example:"7"`
	Username  string     `json:"username" example:"alice"`
	Email     string     `json:"email" example:"alice@example.com"`
	FirstName string     `json:"firstName" example:"Alice"`
	LastName  string     `json:"lastName" example:"Smith"`
	Links     link.Links `json:"_links"`
}

func toEventResponse(e *event.Event, c *category.Category) *EventResponse {
	res := &EventResponse{
		ID:          e.ID,
		CreatorID:   e.CreatorID,
		CategoryID:  e.CategoryID,
		Title:       e.Title,
		Description: e.Description,
		ImageURL:    e.ImageURL,
		Location:    e.Location,
		Date:        e.Date.Format(event.DateLayout),
		Time:        e.Time,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
	if c != nil {
		res.Category = &CategorySummary{ID: c.ID, Name: c.Name}
	}
	return res
}

func eventRef(e *event.Event) link.EventRef {
	return link.EventRef{ID: e.ID, CategoryID: e.CategoryID}
}

func (h *EventHandler) toDetailResponse(d *application.EventDetail) *EventResponse {
	res := toEventResponse(d.Event, d.Category)
	res.Links = link.ForEvent(h.routes, eventRef(d.Event))
	return res
}

func (h *EventHandler) toListResponse(events []*event.Event, q pageQuery, filter url.Values) *EventListResponse {
	items := make([]*EventResponse, len(events))
	for i, e := range events {
		items[i] = toEventResponse(e, nil)
		items[i].Links = link.ForEventItem(h.routes, eventRef(e))
	}
	return &EventListResponse{
		Items: items,
		Page:  q.Page,
		Size:  q.Size,
		Links: link.ForEventList(h.routes, link.Page{Number: q.Page, Size: q.Size, Count: len(events)}, filter),
	}
}

// Create godoc
// @Summary イベントを作成
// @Description 新しいイベントを作成します。作成者はユーザーサービスで存在を確認します
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "イベント情報"
// @Success 201 {object} EventResponse
// @Failure 400 {object} api.ValidationErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Failure 422 {object} api.ErrorResponse
// @Failure 503 {object} api.ErrorResponse
// @Router /v1/events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}

	date, err := time.Parse(event.DateLayout, req.Date)
	if err != nil {
		return api.NewValidationError("date", "2006-01-02形式である必要があります")
	}

	detail, err := h.eventService.CreateEvent(c.Request().Context(), application.CreateEventInput{
		CreatorID:   req.CreatorID,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Location:    req.Location,
		Date:        date,
		Time:        req.Time,
		Category:    req.Category,
	})
	if err != nil {
		return err
	}

	res := h.toDetailResponse(detail)
	c.Response().Header().Set(echo.HeaderLocation, res.Links[link.RelSelf].Href)
	return c.JSON(http.StatusCreated, res)
}

// GetByID godoc
// @Summary イベントを取得
// @Tags events
// @Produce json
// @Param id path int true "イベントID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /v1/events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.eventService.GetEvent(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.toDetailResponse(detail))
}

// List godoc
// @Summary イベント一覧を取得
// @Description creatorId を指定すると作成者で絞り込みます
// @Tags events
// @Produce json
// @Param page query int false "ページ番号（0始まり）" default(0)
// @Param size query int false "ページサイズ" default(10)
// @Param creatorId query int false "作成者ID"
// @Success 200 {object} EventListResponse
// @Router /v1/events [get]
func (h *EventHandler) List(c echo.Context) error {
	q, err := parsePageQuery(c)
	if err != nil {
		return err
	}

	var creatorID int64
	if err := echo.QueryParamsBinder(c).Int64("creatorId", &creatorID).BindError(); err != nil {
		return bindingToValidation(err)
	}

	ctx := c.Request().Context()
	var (
		events []*event.Event
		filter url.Values
	)
	if creatorID > 0 {
		filter = url.Values{"creatorId": {strconv.FormatInt(creatorID, 10)}}
		events, err = h.eventService.ListEventsByCreator(ctx, creatorID, q.Page, q.Size)
	} else {
		events, err = h.eventService.ListEvents(ctx, q.Page, q.Size)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.toListResponse(events, q, filter))
}

// Update godoc
// @Summary イベントを部分更新
// @Description 指定したフィールドだけを更新します
// @Tags events
// @Accept json
// @Produce json
// @Param id path int true "イベントID"
// @Param request body UpdateEventRequest true "更新内容"
// @Success 200 {object} EventResponse
// @Failure 400 {object} api.ValidationErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /v1/events/{id} [patch]
func (h *EventHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateEventRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}

	input := application.UpdateEventInput{
		Patch: event.Patch{
			Title:       req.Title,
			Description: req.Description,
			ImageURL:    req.ImageURL,
			Location:    req.Location,
			Time:        req.Time,
		},
		Category: req.Category,
	}
	if req.Date != nil {
		date, err := time.Parse(event.DateLayout, *req.Date)
		if err != nil {
			return api.NewValidationError("date", "2006-01-02形式である必要があります")
		}
		input.Date = &date
	}

	detail, err := h.eventService.UpdateEvent(c.Request().Context(), id, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.toDetailResponse(detail))
}

// Delete godoc
// @Summary イベントを削除
// @Description 削除通知を送信してからイベントを削除します
// @Tags events
// @Param id path int true "イベントID"
// @Success 200
// @Failure 404 {object} api.ErrorResponse
// @Failure 503 {object} api.ErrorResponse
// @Router /v1/events/{id} [delete]
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.eventService.DeleteEvent(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// GetCreator godoc
// @Summary イベント作成者を取得
// @Description ユーザーサービスから作成者の表示用情報を取得します
// @Tags events
// @Produce json
// @Param id path int true "イベントID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 422 {object} api.ErrorResponse
// @Failure 503 {object} api.ErrorResponse
// @Router /v1/events/{id}/creator [get]
func (h *EventHandler) GetCreator(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.eventService.GetCreator(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(h.routes, id, u))
}

func toUserResponse(r link.Routes, eventID int64, u *user.User) *UserResponse {
	eventLinks := link.ForEventItem(r, link.EventRef{ID: eventID})
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Links: link.Links{
			link.RelSelf:     {Href: eventLinks[link.RelGetEvent].Href + "/creator"},
			link.RelGetEvent: eventLinks[link.RelGetEvent],
		},
	}
}

package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/event-sphere-org/event-service/internal/api/link"
	"github.com/event-sphere-org/event-service/internal/application"
	"github.com/event-sphere-org/event-service/internal/domain/category"
)

type CategoryHandler struct {
	categoryService CategoryServiceInterface
	routes          link.Routes
}

func NewCategoryHandler(categoryService CategoryServiceInterface, routes link.Routes) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, routes: routes}
}

type CreateCategoryRequest struct {
	Name      string  `json:"name" validate:"required,min=3,max=50" example:"Music"`
	CreatedAt *string `json:"createdAt" validate:"isdefault"`
	UpdatedAt *string `json:"updatedAt" validate:"isdefault"`
}

type UpdateCategoryRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=3,max=50" example:"Live Music"`
	CreatedAt *string `json:"createdAt" validate:"isdefault"`
	UpdatedAt *string `json:"updatedAt" validate:"isdefault"`
}

type CategoryResponse struct {
	ID        int64      `json:"id" example:"1"`
	Name      string     `json:"name" example:"Music"`
	CreatedAt string     `json:"createdAt" example:"2026-10-17T10:00:00Z"`
	UpdatedAt string     `json:"updatedAt" example:"2026-10-17T10:00:00Z"`
	Links     link.Links `json:"_links,omitempty"`
}

type CategoryListResponse struct {
	Items []*CategoryResponse `json:"items"`
	Page  int                 `json:"page"`
	Size  int                 `json:"size"`
	Links link.Links          `json:"_links"`
}

// CategoryWithEventsResponse はカテゴリと所属イベントの1ページ分
type CategoryWithEventsResponse struct {
	CategoryResponse
	Events   []*EventResponse `json:"events"`
	Page     int              `json:"page"`
	Size     int              `json:"size"`
	Upcoming bool             `json:"upcoming"`
}

func toCategoryResponse(c *category.Category) *CategoryResponse {
	return &CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *CategoryHandler) toDetailResponse(c *category.Category) *CategoryResponse {
	res := toCategoryResponse(c)
	res.Links = link.ForCategory(h.routes, link.CategoryRef{ID: c.ID})
	return res
}

// Create godoc
// @Summary カテゴリを作成
// @Tags categories
// @Accept json
// @Produce json
// @Param request body CreateCategoryRequest true "カテゴリ情報"
// @Success 201 {object} CategoryResponse
// @Failure 400 {object} api.ValidationErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /v1/categories [post]
func (h *CategoryHandler) Create(c echo.Context) error {
	var req CreateCategoryRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}

	created, err := h.categoryService.CreateCategory(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}

	res := h.toDetailResponse(created)
	c.Response().Header().Set(echo.HeaderLocation, res.Links[link.RelSelf].Href)
	return c.JSON(http.StatusCreated, res)
}

// GetByID godoc
// @Summary カテゴリを取得
// @Tags categories
// @Produce json
// @Param id path int true "カテゴリID"
// @Success 200 {object} CategoryResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /v1/categories/{id} [get]
func (h *CategoryHandler) GetByID(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	found, err := h.categoryService.GetCategory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.toDetailResponse(found))
}

// List godoc
// @Summary カテゴリ一覧を取得
// @Tags categories
// @Produce json
// @Param page query int false "ページ番号（0始まり）" default(0)
// @Param size query int false "ページサイズ" default(10)
// @Success 200 {object} CategoryListResponse
// @Router /v1/categories [get]
func (h *CategoryHandler) List(c echo.Context) error {
	q, err := parsePageQuery(c)
	if err != nil {
		return err
	}
	categories, err := h.categoryService.ListCategories(c.Request().Context(), q.Page, q.Size)
	if err != nil {
		return err
	}

	items := make([]*CategoryResponse, len(categories))
	for i, cat := range categories {
		items[i] = toCategoryResponse(cat)
		items[i].Links = link.ForCategoryItem(h.routes, link.CategoryRef{ID: cat.ID})
	}
	return c.JSON(http.StatusOK, &CategoryListResponse{
		Items: items,
		Page:  q.Page,
		Size:  q.Size,
		Links: link.ForCategoryList(h.routes, link.Page{Number: q.Page, Size: q.Size, Count: len(categories)}),
	})
}

// ListEvents godoc
// @Summary カテゴリに属するイベントを取得
// @Description upcoming=true の場合は今日以降のイベントを開催日の昇順で返します
// @Tags categories
// @Produce json
// @Param id path int true "カテゴリID"
// @Param page query int false "ページ番号（0始まり）" default(0)
// @Param size query int false "ページサイズ" default(10)
// @Param upcoming query bool false "今日以降のみ" default(false)
// @Success 200 {object} CategoryWithEventsResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /v1/categories/{id}/events [get]
func (h *CategoryHandler) ListEvents(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	q, err := parsePageQuery(c)
	if err != nil {
		return err
	}

	result, err := h.categoryService.GetCategoryWithEvents(c.Request().Context(), id, q.Page, q.Size, q.Upcoming)
	if err != nil {
		return err
	}

	events := make([]*EventResponse, len(result.Events))
	for i, e := range result.Events {
		events[i] = toEventResponse(e, nil)
		events[i].Links = link.ForEventItem(h.routes, eventRef(e))
	}

	res := &CategoryWithEventsResponse{
		CategoryResponse: *toCategoryResponse(result.Category),
		Events:           events,
		Page:             result.Page,
		Size:             result.Size,
		Upcoming:         result.Upcoming,
	}
	res.Links = link.ForCategoryEvents(h.routes, link.CategoryRef{ID: result.Category.ID},
		link.Page{Number: result.Page, Size: result.Size, Count: len(result.Events)}, result.Upcoming)
	return c.JSON(http.StatusOK, res)
}

// Update godoc
// @Summary カテゴリを部分更新
// @Tags categories
// @Accept json
// @Produce json
// @Param id path int true "カテゴリID"
// @Param request body UpdateCategoryRequest true "更新内容"
// @Success 200 {object} CategoryResponse
// @Failure 400 {object} api.ValidationErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /v1/categories/{id} [patch]
func (h *CategoryHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateCategoryRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}

	updated, err := h.categoryService.UpdateCategory(c.Request().Context(), id, application.UpdateCategoryInput{Name: req.Name})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.toDetailResponse(updated))
}

// Delete godoc
// @Summary カテゴリを削除
// @Description イベントが残っているカテゴリは削除できません
// @Tags categories
// @Param id path int true "カテゴリID"
// @Success 200
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Failure 503 {object} api.ErrorResponse
// @Router /v1/categories/{id} [delete]
func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.categoryService.DeleteCategory(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

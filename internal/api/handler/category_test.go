package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/event-sphere-org/event-service/internal/api"
	"github.com/event-sphere-org/event-service/internal/api/link"
	"github.com/event-sphere-org/event-service/internal/application"
	"github.com/event-sphere-org/event-service/internal/domain/category"
	"github.com/event-sphere-org/event-service/internal/domain/event"
)

// MockCategoryService はCategoryServiceInterfaceのモック
type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) CreateCategory(ctx context.Context, name string) (*category.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*category.Category), args.Error(1)
}

func (m *MockCategoryService) GetCategory(ctx context.Context, id int64) (*category.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*category.Category), args.Error(1)
}

func (m *MockCategoryService) ListCategories(ctx context.Context, page, size int) ([]*category.Category, error) {
	args := m.Called(ctx, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*category.Category), args.Error(1)
}

func (m *MockCategoryService) GetCategoryWithEvents(ctx context.Context, id int64, page, size int, upcoming bool) (*application.CategoryWithEvents, error) {
	args := m.Called(ctx, id, page, size, upcoming)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CategoryWithEvents), args.Error(1)
}

func (m *MockCategoryService) UpdateCategory(ctx context.Context, id int64, input application.UpdateCategoryInput) (*category.Category, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*category.Category), args.Error(1)
}

func (m *MockCategoryService) DeleteCategory(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newCategoryTestServer(svc CategoryServiceInterface) *echo.Echo {
	e := NewTestEcho()
	h := NewCategoryHandler(svc, link.DefaultRoutes)
	e.POST("/v1/categories", h.Create)
	e.GET("/v1/categories", h.List)
	e.GET("/v1/categories/:id", h.GetByID)
	e.GET("/v1/categories/:id/events", h.ListEvents)
	e.PATCH("/v1/categories/:id", h.Update)
	e.DELETE("/v1/categories/:id", h.Delete)
	return e
}

func music() *category.Category {
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	return &category.Category{ID: 1, Name: "Music", CreatedAt: now, UpdatedAt: now}
}

func TestCategoryHandler_Create(t *testing.T) {
	t.Run("正常に作成できる", func(t *testing.T) {
		svc := new(MockCategoryService)
		svc.On("CreateCategory", mock.Anything, "Music").Return(music(), nil)

		rec := serve(newCategoryTestServer(svc), http.MethodPost, "/v1/categories", `{"name":"Music"}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "/v1/categories/1", rec.Header().Get(echo.HeaderLocation))
		var res CategoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "Music", res.Name)
		assert.Equal(t, "/v1/categories/1/events?page=0&size=10", res.Links[link.RelCategoryEvents].Href)
	})

	t.Run("名前が短ければ 400", func(t *testing.T) {
		svc := new(MockCategoryService)

		rec := serve(newCategoryTestServer(svc), http.MethodPost, "/v1/categories", `{"name":"ab"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var res api.ValidationErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Contains(t, res.Errors, "name")
	})

	t.Run("同じ名前は 409", func(t *testing.T) {
		svc := new(MockCategoryService)
		svc.On("CreateCategory", mock.Anything, "Music").Return(nil, category.ErrNameAlreadyExists)

		rec := serve(newCategoryTestServer(svc), http.MethodPost, "/v1/categories", `{"name":"Music"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestCategoryHandler_GetAndList(t *testing.T) {
	svc := new(MockCategoryService)
	svc.On("GetCategory", mock.Anything, int64(1)).Return(music(), nil)
	svc.On("GetCategory", mock.Anything, int64(9)).Return(nil, category.ErrCategoryNotFound)
	svc.On("ListCategories", mock.Anything, 0, 10).Return([]*category.Category{music()}, nil)
	e := newCategoryTestServer(svc)

	rec := serve(e, http.MethodGet, "/v1/categories/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, http.MethodGet, "/v1/categories/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e, http.MethodGet, "/v1/categories", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var list CategoryListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Items, 1)
	assert.Equal(t, "/v1/categories/1", list.Items[0].Links[link.RelGetCategory].Href)
	assert.Equal(t, "/v1/categories", list.Links[link.RelCreateCategory].Href)
}

func TestCategoryHandler_ListEvents(t *testing.T) {
	t.Run("upcoming を渡して所属イベントを返す", func(t *testing.T) {
		svc := new(MockCategoryService)
		svc.On("GetCategoryWithEvents", mock.Anything, int64(1), 0, 1, true).Return(&application.CategoryWithEvents{
			Category: music(),
			Events:   []*event.Event{sampleDetail().Event},
			Page:     0,
			Size:     1,
			Upcoming: true,
		}, nil)

		rec := serve(newCategoryTestServer(svc), http.MethodGet, "/v1/categories/1/events?size=1&upcoming=true", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		var res CategoryWithEventsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "Music", res.Name)
		assert.Len(t, res.Events, 1)
		assert.True(t, res.Upcoming)
		assert.Equal(t, "/v1/categories/1/events?page=1&size=1&upcoming=true", res.Links[link.RelNext].Href)
	})

	t.Run("upcoming が真偽値でなければ 400", func(t *testing.T) {
		rec := serve(newCategoryTestServer(new(MockCategoryService)), http.MethodGet, "/v1/categories/1/events?upcoming=soon", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"upcoming"`)
	})
}

func TestCategoryHandler_Update(t *testing.T) {
	svc := new(MockCategoryService)
	renamed := music()
	renamed.Name = "Live Music"
	svc.On("UpdateCategory", mock.Anything, int64(1), mock.MatchedBy(func(in application.UpdateCategoryInput) bool {
		return in.Name != nil && *in.Name == "Live Music"
	})).Return(renamed, nil)

	rec := serve(newCategoryTestServer(svc), http.MethodPatch, "/v1/categories/1", `{"name":"Live Music"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Live Music"`)
}

func TestCategoryHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "削除できれば 200", err: nil, wantStatus: http.StatusOK},
		{name: "イベントが残っていれば 409", err: category.ErrCategoryHasEvents, wantStatus: http.StatusConflict},
		{name: "存在しなければ 404", err: category.ErrCategoryNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockCategoryService)
			svc.On("DeleteCategory", mock.Anything, int64(1)).Return(tt.err)

			rec := serve(newCategoryTestServer(svc), http.MethodDelete, "/v1/categories/1", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

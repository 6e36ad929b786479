// Package router はHTTPルートとミドルウェアを1か所で組み立てる
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/event-sphere-org/event-service/internal/api"
	"github.com/event-sphere-org/event-service/internal/api/handler"
	"github.com/event-sphere-org/event-service/internal/api/link"
	"github.com/event-sphere-org/event-service/internal/api/middleware"
	"github.com/event-sphere-org/event-service/internal/config"
	"github.com/event-sphere-org/event-service/internal/pkg/metrics"
)

// Deps はルーター構築に必要な依存
type Deps struct {
	EventService    handler.EventServiceInterface
	CategoryService handler.CategoryServiceInterface
	HealthChecks    map[string]handler.HealthCheck
	Metrics         *metrics.Metrics
	// Gatherer が nil ならデフォルトレジストリを公開する
	Gatherer      prometheus.Gatherer
	MetricsConfig config.MetricsConfig
	Routes        link.Routes
}

// New はルートを登録した Echo インスタンスを返す
func New(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e, deps.Metrics)

	routes := deps.Routes
	if routes.Events == "" || routes.Categories == "" {
		routes = link.DefaultRoutes
	}

	health := handler.NewHealthHandler(deps.HealthChecks)
	e.GET("/health", health.Check)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
		middleware.MetricsBasicAuth(deps.MetricsConfig))

	events := handler.NewEventHandler(deps.EventService, routes)
	eg := e.Group(routes.Events)
	eg.POST("", events.Create)
	eg.GET("", events.List)
	eg.GET("/:id", events.GetByID)
	eg.GET("/:id/creator", events.GetCreator)
	eg.PATCH("/:id", events.Update)
	eg.DELETE("/:id", events.Delete)

	categories := handler.NewCategoryHandler(deps.CategoryService, routes)
	cg := e.Group(routes.Categories)
	cg.POST("", categories.Create)
	cg.GET("", categories.List)
	cg.GET("/:id", categories.GetByID)
	cg.GET("/:id/events", categories.ListEvents)
	cg.PATCH("/:id", categories.Update)
	cg.DELETE("/:id", categories.Delete)

	return e
}

package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/event-sphere-org/event-service/internal/pkg/metrics"
)

// unmatchedPath はルートに一致しなかったリクエストのラベル
const unmatchedPath = "unmatched"

// PrometheusMiddleware はHTTPメトリクスを収集するミドルウェア
func PrometheusMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// エラーレスポンスを書き込んでから記録する
			if err := next(c); err != nil {
				c.Error(err)
			}

			// パスはルート定義（/v1/events/:id）で集計する
			path := c.Path()
			if path == "" || path == "/*" {
				path = unmatchedPath
			}

			method := c.Request().Method
			statusCode := strconv.Itoa(c.Response().Status)

			m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

			return nil
		}
	}
}

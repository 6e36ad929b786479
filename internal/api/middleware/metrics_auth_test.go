package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/event-sphere-org/event-service/internal/config"
)

func serveMetrics(t *testing.T, cfg config.MetricsConfig, authHeader string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := MetricsBasicAuth(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "metrics")
	})
	return rec, handler(c)
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestMetricsBasicAuth(t *testing.T) {
	secured := config.MetricsConfig{User: "scraper", Password: "s3cret"}

	t.Run("認証設定がなければ素通しする", func(t *testing.T) {
		rec, err := serveMetrics(t, config.MetricsConfig{}, "")

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "metrics", rec.Body.String())
	})

	t.Run("正しい認証情報なら通す", func(t *testing.T) {
		rec, err := serveMetrics(t, secured, basic("scraper", "s3cret"))

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("誤ったパスワードは 401", func(t *testing.T) {
		_, err := serveMetrics(t, secured, basic("scraper", "wrong"))

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("認証ヘッダーなしは 401 で realm を返す", func(t *testing.T) {
		rec, err := serveMetrics(t, secured, "")

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderWWWAuthenticate), `realm="metrics"`)
	})
}

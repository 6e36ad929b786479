package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/pkg/apperror"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
)

// ErrorResponse は単一メッセージのエラーレスポンス
type ErrorResponse struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

// ValidationErrorResponse はフィールドごとのエラーレスポンス
type ValidationErrorResponse struct {
	Timestamp string            `json:"timestamp"`
	Errors    map[string]string `json:"errors"`
	Path      string            `json:"path"`
}

const internalErrorMessage = "内部サーバーエラー"

// StatusFor はエラー分類をHTTPステータスに変換する
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.NotFound:
		return http.StatusNotFound
	case apperror.AlreadyExists, apperror.HasDependents, apperror.Conflict:
		return http.StatusConflict
	case apperror.NotValid:
		return http.StatusBadRequest
	case apperror.ReferenceNotFound:
		return http.StatusUnprocessableEntity
	case apperror.RemoteUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CustomHTTPErrorHandler はエラーをJSONレスポンスに変換する
// 500 系の詳細はログにだけ出力し、レスポンスには含めない
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	path := c.Request().URL.Path
	now := time.Now().UTC().Format(time.RFC3339)

	var ve *ValidationError
	if errors.As(err, &ve) {
		writeJSON(c, http.StatusBadRequest, ValidationErrorResponse{Timestamp: now, Errors: ve.Fields, Path: path})
		return
	}

	code, message := resolve(err)
	if code >= http.StatusInternalServerError {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", path),
			zap.Error(err),
		)
		if code == http.StatusInternalServerError {
			message = internalErrorMessage
		}
	}

	writeJSON(c, code, ErrorResponse{Timestamp: now, Message: message, Path: path})
}

func resolve(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			return he.Code, m
		}
		return he.Code, http.StatusText(he.Code)
	}

	var ae *apperror.Error
	if errors.As(err, &ae) {
		return StatusFor(ae.Kind), err.Error()
	}
	return http.StatusInternalServerError, internalErrorMessage
}

func writeJSON(c echo.Context, code int, body interface{}) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

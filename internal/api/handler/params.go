package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/event-sphere-org/event-service/internal/api"
	"github.com/event-sphere-org/event-service/internal/application"
)

var errMalformedBody = echo.NewHTTPError(400, "リクエストの形式が不正です")

// pathID はパスパラメータの正の整数IDを取り出す
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, api.NewValidationError(name, "正の整数である必要があります")
	}
	return id, nil
}

// pageQuery はページ指定を取り出して補正する
type pageQuery struct {
	Page     int
	Size     int
	Upcoming bool
}

func parsePageQuery(c echo.Context) (pageQuery, error) {
	var q pageQuery
	err := echo.QueryParamsBinder(c).
		Int("page", &q.Page).
		Int("size", &q.Size).
		Bool("upcoming", &q.Upcoming).
		BindError()
	if err != nil {
		return q, bindingToValidation(err)
	}
	q.Page, q.Size = application.NormalizePage(q.Page, q.Size)
	return q, nil
}

// bindRequest はボディを読み込んで検証する
func bindRequest(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errMalformedBody
	}
	return c.Validate(req)
}

func bindingToValidation(err error) error {
	var be *echo.BindingError
	if errors.As(err, &be) {
		return api.NewValidationError(be.Field, "値の形式が不正です")
	}
	return err
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/linskybing/zeera/internal/application"
	"github.com/linskybing/zeera/internal/config"
	"github.com/linskybing/zeera/internal/errs"
	"github.com/linskybing/zeera/pkg/response"
	"github.com/linskybing/zeera/pkg/utils"
)

// respondError maps err to its status and the error envelope. The underlying
// cause is only exposed in development.
func respondError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	body := response.ErrorResponse{
		StatusCode: status,
		Error:      errs.Message(err),
	}
	if config.IsDevelopment {
		var e *errs.Error
		if errors.As(err, &e) && e.Err != nil {
			body.Detail = e.Err.Error()
		}
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func respondOK(c *gin.Context, status int, data any, message string) {
	c.JSON(status, response.Success(status, data, message))
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, errs.Validation(msg))
}

// pageParams reads page and limit, defaulting to the first page of ten.
func pageParams(c *gin.Context) (int, int, error) {
	page, err := intQuery(c, "page", application.DefaultPage)
	if err != nil {
		return 0, 0, err
	}
	limit, err := intQuery(c, "limit", application.DefaultLimit)
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Validation(name + " must be an integer")
	}
	return n, nil
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := utils.ParseIDParam(c, name)
	if err != nil {
		badRequest(c, err.Error())
		return 0, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (uint, bool) {
	uid, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, errs.Unauthorized("unauthorized"))
		return 0, false
	}
	return uid, true
}

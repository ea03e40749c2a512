package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/erp/pricesync/internal/infrastructure/logger"
	"github.com/erp/pricesync/internal/interfaces/http/dto"
	"github.com/erp/pricesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIResponse documents the success envelope with a typed payload.
// @Description Response envelope
type APIResponse[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    T         `json:"data,omitempty"`
	Meta    *dto.Meta `json:"meta,omitempty"`
}

// ErrorResponse documents the failure envelope.
// @Description Error envelope
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

func okPage(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// fail answers err. Domain errors keep their code; a sync that ran past the
// request deadline is a transient failure; anything else is logged and
// hidden behind a generic 500.
func fail(c *gin.Context, err error) {
	var de *shared.DomainError
	switch {
	case errors.As(err, &de):
		abort(c, dto.GetHTTPStatus(de.Code), de.Code, de.Message)
	case errors.Is(err, context.DeadlineExceeded):
		abort(c, http.StatusServiceUnavailable, dto.ErrCodeTransientIO, "Request timed out")
	default:
		logger.GetGinLogger(c).Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		abort(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
	}
}

// pathID parses the :id parameter of a route addressing resource.
func pathID(c *gin.Context, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid "+resource+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

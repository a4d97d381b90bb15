package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aitor-glitch-blde/app-partituras/internal/service"
)

// HandleServiceError 把 Service 层业务错误映射到 HTTP 状态码。
// 映射规则集中在这一处，各 handler 不得自行 switch 错误类型。
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrRegistrationFailed):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrValidation):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrScoreNotFound),
		errors.Is(err, service.ErrCollaborationNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrElementNotFound):
		// 读取被拒和真正不存在共用 404
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInvalidState):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		ErrorResponse(c, http.StatusServiceUnavailable, err.Error())
	default:
		// Log the internal error for debugging
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

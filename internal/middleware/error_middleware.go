package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/logger"
)

// categories maps each error category to its status and the code used when the
// error carries none of its own. Order matters only for errors wrapping two.
var categories = []struct {
	err    error
	status int
	code   dto.ErrorCode
}{
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict},
	{apperrors.ErrUnsupportedMedia, http.StatusBadRequest, dto.ErrorCodeUnsupportedMedia},
	{apperrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, dto.ErrorCodePayloadTooLarge},
}

// ErrorStatus returns the HTTP status and error detail for err. Unknown errors
// become a 500 whose message does not leak internals.
func ErrorStatus(err error) (int, *dto.ErrorDetail) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		err = apperrors.ErrFileTooLarge
	}

	for _, cat := range categories {
		if !errors.Is(err, cat.err) {
			continue
		}
		detail := dto.NewErrorDetail(cat.code, err.Error())

		var ce *apperrors.CustomError
		if errors.As(err, &ce) {
			if ce.Code != "" {
				detail.Code = dto.ErrorCode(ce.Code)
			}
			if ce.Field != "" {
				detail.Field = ce.Field
			}
			if ce.Details != nil {
				detail.Details = ce.Details
			}
		}
		return cat.status, detail
	}

	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
		WithSeverity(dto.ErrorSeverityCritical)
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Unhandled error while serving request")
	}
	c.JSON(status, dto.NewErrorResponse(detail))
}

// Recovery turns a panic into the standard 500 envelope
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error().
			Interface("panic", recovered).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic")
		detail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").WithSeverity(dto.ErrorSeverityCritical)
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(detail))
	})
}

// Package controllers adapts HTTP requests to the services. Handlers bind and
// validate input, resolve the caller and pass errors to middleware.HandleAPIError.
package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/enrolladmin/internal/app/auth"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/middleware"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/report"
)

// principal returns the authenticated caller or answers 401
func principal(ctx *gin.Context) (appauth.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").
			WithDetails("User information not found")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return appauth.Principal{}, false
	}
	return p, true
}

// sendWorkbook renders a spreadsheet into memory first so that a failure still
// produces a JSON error instead of a truncated download.
func sendWorkbook(ctx *gin.Context, name string, render func(w io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().UTC().Format("20060102"))
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	ctx.Data(http.StatusOK, report.ContentType, buf.Bytes())
}

// formFileError translates a FormFile failure. An oversized body keeps its
// *http.MaxBytesError so it is reported as FileTooLarge.
func formFileError(err error, field string) error {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return err
	case errors.Is(err, http.ErrMissingFile):
		return apperrors.NewValidationError(field, field+" file is required")
	default:
		return apperrors.NewValidationError(field, "invalid multipart form")
	}
}

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/headless-cms-admin/internal/models"
	"github.com/rs/zerolog"
)

// statusFor maps a service error to its HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateName),
		errors.Is(err, models.ErrInUse),
		errors.Is(err, models.ErrCircularDependency):
		return http.StatusConflict
	case errors.Is(err, models.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrInvalidFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, models.ErrRequiredField),
		errors.Is(err, models.ErrFieldTypeMismatch),
		errors.Is(err, models.ErrOutOfRange),
		errors.Is(err, models.ErrPatternMismatch),
		errors.Is(err, models.ErrInvalidSchedule),
		errors.Is(err, models.ErrInvalidField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fieldErrors collects every field error carried by err
func fieldErrors(err error) []*models.FieldError {
	var out []*models.FieldError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if fe, ok := e.(*models.FieldError); ok {
			out = append(out, fe)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// respondError writes err as JSON. Server errors are logged and their
// details withheld from the client.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}
	if fes := fieldErrors(err); len(fes) > 0 {
		body["errors"] = fes
	}
	c.JSON(status, body)
}

// badRequest reports a malformed request body or query
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

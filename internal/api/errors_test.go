package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/headless-cms-admin/internal/models"
	"github.com/headless-cms-admin/internal/validation"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"entity not found", fmt.Errorf("%w: x", models.ErrComponentNotFound), http.StatusNotFound},
		{"duplicate", models.NewFieldError(models.ErrDuplicateName, "name", "taken"), http.StatusConflict},
		{"in use", fmt.Errorf("component x is used by 2 schemas: %w", models.ErrInUse), http.StatusConflict},
		{"cycle", models.ErrCircularDependency, http.StatusConflict},
		{"required", models.NewFieldError(models.ErrRequiredField, "title", "title is required"), http.StatusUnprocessableEntity},
		{"schedule", models.ErrInvalidSchedule, http.StatusUnprocessableEntity},
		{"too large", models.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"file type", models.ErrInvalidFileType, http.StatusUnsupportedMediaType},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
		{"store failure", errors.New("failed to persist cms_entries: disk full"), http.StatusInternalServerError},
		{"joined validation", validation.ValidationErrors{
			models.NewFieldError(models.ErrOutOfRange, "rating", "too high"),
			models.NewFieldError(models.ErrPatternMismatch, "email", "bad email"),
		}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFieldErrors(t *testing.T) {
	err := fmt.Errorf("create failed: %w", validation.ValidationErrors{
		models.NewFieldError(models.ErrRequiredField, "title", "title is required"),
		models.NewFieldError(models.ErrOutOfRange, "rating", "rating must be at most 5"),
	})

	fes := fieldErrors(err)
	if len(fes) != 2 {
		t.Fatalf("Expected 2 field errors, got %d", len(fes))
	}
	if fes[0].Field != "title" || fes[1].Field != "rating" {
		t.Errorf("Unexpected fields: %s, %s", fes[0].Field, fes[1].Field)
	}

	if fes := fieldErrors(errors.New("plain")); len(fes) != 0 {
		t.Errorf("Expected no field errors, got %d", len(fes))
	}
}

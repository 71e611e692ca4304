package server

import (
	"errors"
	"testing"

	"nodeback/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", models.NewNotFoundError("Post", 7), fiber.StatusNotFound, models.CodeNotFound},
		{"validation", models.NewFieldValidationError("tags", "required"), fiber.StatusBadRequest, models.CodeValidation},
		{"unauthorized", models.NewUnauthorizedError("no"), fiber.StatusUnauthorized, models.CodeUnauthorized},
		{"forbidden", models.NewForbiddenError("no"), fiber.StatusForbidden, models.CodeForbidden},
		{"conflict", models.NewConflictError("dup"), fiber.StatusConflict, models.CodeConflict},
		{"unavailable", models.NewUnavailableError(errors.New("redis down")), fiber.StatusServiceUnavailable, models.CodeUnavailable},
		{"rate limited", &models.AppError{Code: models.CodeRateLimited, Message: "slow down"}, fiber.StatusTooManyRequests, models.CodeRateLimited},
		{"plain error", errors.New("boom"), fiber.StatusInternalServerError, models.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, mapped := mapServiceError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, models.ErrorCode(mapped))
		})
	}
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"go", "rust", "zig"}, splitTags([]string{"go, rust", " ", "zig,"}))
	assert.Nil(t, splitTags(nil))
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "comment ID", humanizeParam("commentId"))
	assert.Equal(t, "post image ID", humanizeParam("postImageId"))
	assert.Equal(t, "slug", humanizeParam("slug"))
}

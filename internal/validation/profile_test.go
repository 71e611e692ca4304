package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		want     string
		ok       bool
	}{
		{name: "jpg", filename: "a.jpg", want: ".jpg", ok: true},
		{name: "upper jpeg", filename: "PHOTO.JPEG", want: ".jpeg", ok: true},
		{name: "png", filename: "x.y.png", want: ".png", ok: true},
		{name: "svg", filename: "logo.svg", want: ".svg", ok: true},
		{name: "gif rejected", filename: "a.gif", ok: false},
		{name: "webp rejected", filename: "a.webp", ok: false},
		{name: "no extension", filename: "image", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ImageExtension(tt.filename)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateAge(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateAge(18, 18, 99))
	assert.NoError(t, ValidateAge(99, 18, 99))
	assert.Error(t, ValidateAge(17, 18, 99))
	assert.Error(t, ValidateAge(100, 18, 99))
}

func TestValidateName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateName("first_name", "Ada"))
	assert.Error(t, ValidateName("first_name", "   "))
	assert.ErrorContains(t, ValidateName("last_name", strings.Repeat("x", MaxNameLength+1)), "last_name")
}

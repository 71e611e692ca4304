package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const MaxNameLength = 150

// AllowedImageExtensions lists the upload formats accepted for post images.
var AllowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".svg":  {},
}

// ValidateName checks a first or last name.
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%s must not exceed %d characters", field, MaxNameLength)
	}
	return nil
}

// ValidateAge checks the age bounds inclusive of both ends.
func ValidateAge(age, min, max int) error {
	if age < min || age > max {
		return fmt.Errorf("age must be between %d and %d", min, max)
	}
	return nil
}

// ImageExtension returns the lower-cased extension of filename if it is an
// accepted image format.
func ImageExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "", errors.New("image file has no extension")
	}
	if _, ok := AllowedImageExtensions[ext]; !ok {
		return "", fmt.Errorf("file extension %q is not allowed; use jpg, jpeg, png or svg", strings.TrimPrefix(ext, "."))
	}
	return ext, nil
}

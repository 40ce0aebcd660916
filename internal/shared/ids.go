package shared

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const alnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewID returns a time-ordered record identifier.
func NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// NewToken returns a URL-safe random token of the given length.
func NewToken(length int) (string, error) {
	token, err := gonanoid.New(length)
	if err != nil {
		return "", fmt.Errorf("shared: generate token: %w", err)
	}
	return token, nil
}

// NewSuffix returns an alphanumeric random string, used for slugs.
func NewSuffix(length int) (string, error) {
	s, err := gonanoid.Generate(alnum, length)
	if err != nil {
		return "", fmt.Errorf("shared: generate suffix: %w", err)
	}
	return s, nil
}

// NormalizeEmail trims and lower-cases an address for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

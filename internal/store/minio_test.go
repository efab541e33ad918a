package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2024, 5, 8, 17, 14, 42, 0, time.UTC)
	assert.Equal(t, "cat.png_240508_171442", objectKey("cat.png", now))
}

func TestObjectKeyPadsComponents(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "a.jpg_260102_030405", objectKey("a.jpg", now))
}

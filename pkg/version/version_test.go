package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Run("Should prefer ldflags values", func(t *testing.T) {
		prev := Version
		t.Cleanup(func() { Version = prev })
		Version = "v9.9.9"
		assert.Equal(t, "v9.9.9", Get().Version)
	})

	t.Run("Should always report some commit", func(t *testing.T) {
		assert.NotEmpty(t, Get().CommitHash)
	})
}

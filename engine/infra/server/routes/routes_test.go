package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutes(t *testing.T) {
	t.Run("Should build the versioned base path", func(t *testing.T) {
		assert.Equal(t, "/api/v1", Base())
	})
	t.Run("Should mount tasks under the base path", func(t *testing.T) {
		assert.Equal(t, "/api/v1/tasks", Tasks())
	})
	t.Run("Should mount notes under the base path", func(t *testing.T) {
		assert.Equal(t, "/api/v1/notes", Notes())
	})
	t.Run("Should keep health outside the API base", func(t *testing.T) {
		assert.Equal(t, "/health", Health())
	})
}

package userctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContext(t *testing.T) {
	t.Run("Should round-trip the user id", func(t *testing.T) {
		ctx := WithUserID(context.Background(), 42)
		id, ok := UserIDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, int64(42), id)
	})

	t.Run("Should report a missing user", func(t *testing.T) {
		_, ok := UserIDFromContext(context.Background())
		assert.False(t, ok)
		_, err := MustUserIDFromContext(context.Background())
		assert.Error(t, err)
	})
}

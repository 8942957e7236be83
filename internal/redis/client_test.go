package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("rejects a malformed url", func(t *testing.T) {
		_, err := NewClient(context.Background(), "not a url")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse redis url")
	})

	t.Run("fails when the server is unreachable", func(t *testing.T) {
		_, err := NewClient(context.Background(), "redis://127.0.0.1:1/0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ping redis")
	})
}

package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisStore(t *testing.T) {
	store, err := NewRedisStore("redis://localhost:6379/2", "u1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.Equal(t, "taskchat:presence:u1", store.key)
	assert.Equal(t, 2, store.rdb.Options().DB)
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	_, err := NewRedisStore("http://localhost:6379", "u1")
	assert.Error(t, err)
}

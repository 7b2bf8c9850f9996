package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(60)
	ctx := context.Background()

	_, ok := m.Get(ctx, "missing")
	assert.False(t, ok)

	m.Set(ctx, "key", []byte("value"))
	got, ok := m.Get(ctx, "key")
	require.True(t, ok)
	assert.Equal(t, []byte("value"), got)
}

func TestMemory_CopiesValue(t *testing.T) {
	m := NewMemory(60)
	ctx := context.Background()

	buffer := []byte("original")
	m.Set(ctx, "key", buffer)
	buffer[0] = 'X'

	got, ok := m.Get(ctx, "key")
	require.True(t, ok)
	assert.Equal(t, []byte("original"), got)
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()

	current := time.Now()
	m.now = func() time.Time { return current }

	m.Set(ctx, "key", []byte("value"))

	_, ok := m.Get(ctx, "key")
	require.True(t, ok)

	current = current.Add(11 * time.Second)
	_, ok = m.Get(ctx, "key")
	assert.False(t, ok, "entry should expire after the TTL")
	assert.Equal(t, 0, m.Len(), "expired entry should be dropped on read")
}

func TestMemory_InvalidatePrefix(t *testing.T) {
	m := NewMemory(60)
	ctx := context.Background()

	m.Set(ctx, "app:table:cats:one", []byte("1"))
	m.Set(ctx, "app:table:cats:two", []byte("2"))
	m.Set(ctx, "app:table:dogs:one", []byte("3"))

	m.Invalidate(ctx, "app:table:cats:")

	_, ok := m.Get(ctx, "app:table:cats:one")
	assert.False(t, ok)
	_, ok = m.Get(ctx, "app:table:cats:two")
	assert.False(t, ok)
	_, ok = m.Get(ctx, "app:table:dogs:one")
	assert.True(t, ok, "other table's entries must survive")
}

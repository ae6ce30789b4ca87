package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "accessToken", "abc"))
	v, ok, err := m.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
	assert.Equal(t, []string{"accessToken"}, m.Keys())

	require.NoError(t, m.Remove(ctx, "accessToken"))
	_, ok, _ = m.Get(ctx, "accessToken")
	assert.False(t, ok)

	// removing a missing key is not an error
	require.NoError(t, m.Remove(ctx, "accessToken"))
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(NewMemory())

	require.NoError(t, r.Set(ctx, "k", "1"))
	require.NoError(t, r.Set(ctx, "k", "2"))
	require.NoError(t, r.Remove(ctx, "k"))

	assert.Equal(t, 2, r.Sets("k"))
	assert.Equal(t, 1, r.Removes("k"))
	assert.Equal(t, 0, r.Sets("other"))
}

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetBeforeSet(t *testing.T) {
	s := New()

	_, err := s.Get("token")
	require.Error(t, err)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "token", notFound.Name)
}

func TestStore_SetGet(t *testing.T) {
	s := New()
	s.Set("token", "abc123")

	got, err := s.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)
}

func TestStore_Overwrite(t *testing.T) {
	s := New()
	s.Set("count", 1)
	s.Set("count", 2)

	got, err := s.Get("count")
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestStore_NonStringValues(t *testing.T) {
	s := New()
	s.Set("user", map[string]any{"id": float64(7), "name": "Alice"})
	s.Set("ids", []any{float64(1), float64(2)})

	user, err := s.Get("user")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(7), "name": "Alice"}, user)

	ids, err := s.Get("ids")
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2)}, ids)
}

func TestStore_ClearAll(t *testing.T) {
	s := New()
	s.Set("a", 1)
	s.Set("b", 2)
	require.Equal(t, 2, s.Len())

	require.NoError(t, s.ClearAll())
	assert.Equal(t, 0, s.Len())

	_, err := s.Get("a")
	assert.Error(t, err)
}

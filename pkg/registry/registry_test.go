package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("b", 2))
	require.NoError(t, reg.Register("a", 1))

	assert.True(t, reg.Has("a"))
	assert.False(t, reg.Has("c"))

	v, err := reg.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = reg.Get("c")
	assert.ErrorIs(t, err, ErrNotFound)

	err = reg.Register("a", 3)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	v, _ = reg.Get("a")
	assert.Equal(t, 1, v)

	assert.Equal(t, []string{"b", "a"}, reg.IDs())
}

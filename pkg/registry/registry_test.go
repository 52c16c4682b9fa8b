package registry_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantlabs/espalier/pkg/domain"
	"github.com/verdantlabs/espalier/pkg/registry"
)

func steps(ids ...string) []domain.StepDefinition {
	out := make([]domain.StepDefinition, len(ids))
	for i, id := range ids {
		out[i] = domain.StepDefinition{ID: id}
	}
	return out
}

func TestRegistry_At(t *testing.T) {
	r, err := registry.New(steps("audience", "pains", "tone"))
	require.NoError(t, err)

	s, err := r.At(1)
	require.NoError(t, err)
	assert.Equal(t, "pains", s.ID)

	for _, i := range []int{-1, 3, 99} {
		_, err := r.At(i)
		assert.True(t, errors.Is(err, domain.ErrStepOutOfRange), "index %d", i)
	}
}

func TestRegistry_DuplicateIDs(t *testing.T) {
	_, err := registry.New(steps("a", "b", "a"))
	assert.True(t, errors.Is(err, domain.ErrDuplicateStep))
}

func TestRegistry_MissingID(t *testing.T) {
	_, err := registry.New(steps("a", ""))
	assert.Error(t, err)
}

func TestRegistry_Navigation(t *testing.T) {
	r, err := registry.New(steps("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, 3, r.Len())
	assert.True(t, r.IsFirst(0))
	assert.False(t, r.IsFirst(1))
	assert.True(t, r.IsLast(2))
	assert.False(t, r.IsLast(1))

	i, ok := r.IndexOf("b")
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = r.IndexOf("zzz")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b", "c"}, r.IDs())
}

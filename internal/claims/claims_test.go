package claims

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapStore implements Store without Updater so Merge takes the get/set path.
type mapStore struct {
	data   map[string]ClaimSet
	sets   int
	getErr error
	setErr error
}

func (m *mapStore) Get(_ context.Context, userID string) (ClaimSet, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[userID].Clone(), nil
}

func (m *mapStore) Set(_ context.Context, userID string, c ClaimSet) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[userID] = c.Clone()
	return nil
}

func TestApply(t *testing.T) {
	current := ClaimSet{"role": "guest", "tier": "gold"}

	assert.Equal(t, ClaimSet{"role": "admin", "tier": "gold"}, Apply(current, ClaimSet{"role": "admin"}))
	assert.Equal(t, ClaimSet{"tier": "gold"}, Apply(current, ClaimSet{"role": nil}))
	assert.Equal(t, ClaimSet{"role": "guest", "tier": "gold"}, current, "apply must not mutate its input")
	assert.Equal(t, ClaimSet{"role": "guest"}, Apply(nil, ClaimSet{"role": "guest"}))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(ClaimSet{"role": "admin"}))
	require.NoError(t, Validate(nil))

	err := Validate(ClaimSet{"sub": "someone-else"})
	require.ErrorIs(t, err, ErrInvalidClaims)

	err = Validate(ClaimSet{"blob": strings.Repeat("x", MaxSerializedBytes)})
	require.ErrorIs(t, err, ErrInvalidClaims)
}

func TestMerge_PreservesOtherClaims(t *testing.T) {
	store := &mapStore{data: map[string]ClaimSet{"u1": {"role": "guest", "tier": "gold"}}}

	written, err := Merge(context.Background(), store, "u1", ClaimSet{"role": "admin"})

	require.NoError(t, err)
	assert.Equal(t, ClaimSet{"role": "admin", "tier": "gold"}, written)
	assert.Equal(t, ClaimSet{"role": "admin", "tier": "gold"}, store.data["u1"])
	assert.Equal(t, 1, store.sets)
}

func TestMerge_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("read failure skips write", func(t *testing.T) {
		store := &mapStore{data: map[string]ClaimSet{}, getErr: errors.New("auth service down")}
		_, err := Merge(ctx, store, "u1", ClaimSet{"role": "admin"})
		require.ErrorContains(t, err, "read claims")
		assert.Zero(t, store.sets)
	})

	t.Run("write failure is wrapped", func(t *testing.T) {
		store := &mapStore{data: map[string]ClaimSet{}, setErr: errors.New("permission denied")}
		_, err := Merge(ctx, store, "u1", ClaimSet{"role": "admin"})
		require.ErrorContains(t, err, "write claims")
	})

	t.Run("invalid result is rejected before writing", func(t *testing.T) {
		store := &mapStore{data: map[string]ClaimSet{}}
		_, err := Merge(ctx, store, "u1", ClaimSet{"iss": "evil"})
		require.ErrorIs(t, err, ErrInvalidClaims)
		assert.Zero(t, store.sets)
	})
}

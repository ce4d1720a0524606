package service

import (
	"context"
	"errors"
	"testing"

	"github.com/emrgen/exploration/internal/exploration"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetService(t *testing.T) {
	ctx := context.TODO()
	env := newTestEnv(t)
	env.create(t, "exp-1")

	require.NoError(t, env.assets.SaveAsset(ctx, ownerID, "exp-1", "b.png", []byte("b")))
	require.NoError(t, env.assets.SaveAsset(ctx, ownerID, "exp-1", "a.png", []byte("a")))

	for _, name := range []string{"", "..", "../a.png", "dir/a.png", `dir\a.png`} {
		assert.ErrorIs(t, env.assets.SaveAsset(ctx, ownerID, "exp-1", name, []byte("x")), ErrInvalidAssetName, name)
	}

	err := env.assets.SaveAsset(ctx, ownerID, "exp-1", "a.png", []byte("again"))
	var verr *exploration.ValidationError
	assert.True(t, errors.As(err, &verr))

	assert.ErrorIs(t, env.assets.SaveAsset(ctx, otherID, "exp-1", "c.png", []byte("c")), rights.ErrUnauthorized)

	data, err := env.assets.ReadAsset(ctx, "exp-1", "a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)

	_, err = env.assets.ReadAsset(ctx, "exp-1", "missing.png")
	var nerr *NotFoundError
	assert.True(t, errors.As(err, &nerr))

	names, err := env.assets.ListAssets(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png"}, names)
}

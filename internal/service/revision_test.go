package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/emrgen/exploration/internal/change"
	"github.com/emrgen/exploration/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retitle(t *testing.T, env *testEnv, id string, version int64, title string) {
	t.Helper()
	_, err := env.explorations.UpdateExploration(context.TODO(), UpdateRequest{
		CommitterID:   ownerID,
		ExplorationID: id,
		Version:       version,
		Changes:       change.List{change.SetProperty{PropertyName: change.PropertyTitle, NewValue: change.MustValue(title)}},
	})
	require.NoError(t, err)
}

func TestRevisionService_GetExplorationAtVersion(t *testing.T) {
	ctx := context.TODO()
	env := newTestEnv(t)
	env.create(t, "exp-1")
	retitle(t, env, "exp-1", 1, "B")

	v1, err := env.revisions.GetExplorationAtVersion(ctx, "exp-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "A title", v1.Title)
	assert.Equal(t, int64(1), v1.Version)

	live, err := env.revisions.GetExplorationAtVersion(ctx, "exp-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "B", live.Title)

	_, err = env.revisions.GetExplorationAtVersion(ctx, "exp-1", 9)
	var nerr *NotFoundError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, int64(9), nerr.Version)
}

func TestRevisionService_Revert(t *testing.T) {
	ctx := context.TODO()
	env := newTestEnv(t)
	env.create(t, "exp-1")
	retitle(t, env, "exp-1", 1, "B")

	reverted, err := env.revisions.RevertExploration(ctx, ownerID, "exp-1", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), reverted.Version)
	assert.Equal(t, "A title", reverted.Title)

	v1, err := env.store.GetSnapshot(ctx, "exp-1", 1)
	require.NoError(t, err)
	v3, err := env.store.GetSnapshot(ctx, "exp-1", 3)
	require.NoError(t, err)
	assert.Equal(t, v1.Content, v3.Content)
	assert.Equal(t, model.CommitTypeRevert, v3.CommitType)
	assert.Equal(t, "Reverted exploration to version 1", v3.CommitMessage)
	assert.JSONEq(t, `[{"cmd": "revert", "version_number": 1}]`, string(v3.CommitCmds))

	summary, err := env.store.GetSummary(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, "A title", summary.Title)
	assert.Equal(t, int64(3), summary.Version)
}

func TestRevisionService_RevertErrors(t *testing.T) {
	ctx := context.TODO()
	env := newTestEnv(t)
	env.create(t, "exp-1")
	retitle(t, env, "exp-1", 1, "B")

	tests := []struct {
		name      string
		committer string
		current   int64
		target    int64
		check     func(t *testing.T, err error)
	}{
		{
			name:      "stale current",
			committer: ownerID,
			current:   1,
			target:    1,
			check: func(t *testing.T, err error) {
				var stale *StaleVersionError
				assert.True(t, errors.As(err, &stale))
			},
		},
		{
			name:      "target not older",
			committer: ownerID,
			current:   2,
			target:    2,
			check:     func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidVersion) },
		},
		{
			name:      "target zero",
			committer: ownerID,
			current:   2,
			target:    0,
			check:     func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidVersion) },
		},
		{
			name:      "not an editor",
			committer: otherID,
			current:   2,
			target:    1,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "permission")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.revisions.RevertExploration(ctx, tt.committer, "exp-1", tt.current, tt.target)
			require.Error(t, err)
			tt.check(t, err)

			row, err := env.store.GetExploration(ctx, "exp-1")
			require.NoError(t, err)
			assert.Equal(t, int64(2), row.Version)
		})
	}
}

func TestRevisionService_Export(t *testing.T) {
	ctx := context.TODO()
	env := newTestEnv(t)
	env.create(t, "exp-1")
	require.NoError(t, env.assets.SaveAsset(ctx, ownerID, "exp-1", "image.png", []byte("png")))

	bundle, err := env.revisions.Export(ctx, "exp-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "A title.yaml", bundle.Filename)
	assert.Contains(t, string(bundle.YAML), "title: A title")
	assert.Contains(t, string(bundle.YAML), "objective: An objective")
	require.Len(t, bundle.Assets, 1)

	var buf bytes.Buffer
	require.NoError(t, bundle.WriteZip(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = string(data)
	}
	assert.Equal(t, string(bundle.YAML), files["A title.yaml"])
	assert.Equal(t, "png", files["assets/image.png"])
}

func TestRevisionService_ExportAssetsAsOfVersion(t *testing.T) {
	ctx := context.TODO()
	env := newTestEnv(t)
	env.create(t, "exp-1")
	require.NoError(t, env.assets.SaveAsset(ctx, ownerID, "exp-1", "first.png", []byte("1")))
	_, err := env.explorations.UpdateExploration(ctx, UpdateRequest{
		CommitterID:   ownerID,
		ExplorationID: "exp-1",
		Version:       1,
		Changes:       change.List{change.AddState{StateName: "New state"}},
	})
	require.NoError(t, err)
	require.NoError(t, env.assets.SaveAsset(ctx, ownerID, "exp-1", "second.png", []byte("2")))

	names := func(b *Bundle) []string {
		out := make([]string, 0, len(b.Assets))
		for _, a := range b.Assets {
			out = append(out, a.Name)
		}
		return out
	}

	tests := []struct {
		name    string
		version int64
		want    []string
	}{
		{name: "live", version: 0, want: []string{"first.png", "second.png"}},
		{name: "live by number", version: 2, want: []string{"first.png", "second.png"}},
		{name: "older version", version: 1, want: []string{"first.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle, err := env.revisions.Export(ctx, "exp-1", tt.version)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, names(bundle))
		})
	}
}

func TestRevisionService_ExportStates(t *testing.T) {
	ctx := context.TODO()
	env := newTestEnv(t)
	env.create(t, "exp-1")
	_, err := env.explorations.UpdateExploration(ctx, UpdateRequest{
		CommitterID:   ownerID,
		ExplorationID: "exp-1",
		Version:       1,
		Changes:       change.List{change.AddState{StateName: "New state"}},
	})
	require.NoError(t, err)

	states, err := env.revisions.ExportStates(ctx, "exp-1", 2)
	require.NoError(t, err)
	assert.Len(t, states, 2)
	assert.Contains(t, states, "New state")

	states, err = env.revisions.ExportStates(ctx, "exp-1", 1)
	require.NoError(t, err)
	assert.Len(t, states, 1)
}

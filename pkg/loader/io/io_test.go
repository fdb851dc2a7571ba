package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/loader"
)

func TestIOSourceLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,Ada\n"), 0o600))

	l := NewIOSourceLoader()
	assert.Equal(t, common.SourceKindFile, l.Kind())

	f := loader.NewSourceFile(loader.NewSourceFileParams{ID: "s1", Path: path, Loader: l})
	b, err := f.GetBytes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Ada\n", string(b))

	// Served from the cache once read.
	require.NoError(t, os.Remove(path))
	b, err = f.GetBytes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Ada\n", string(b))

	missing := loader.NewSourceFile(loader.NewSourceFileParams{ID: "s2", Path: filepath.Join(dir, "nope.csv"), Loader: l})
	_, err = missing.GetBytes(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

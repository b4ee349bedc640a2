package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_None(t *testing.T) {
	for _, driver := range []string{"", "none", "NONE"} {
		s, err := Open(context.Background(), driver, "")
		require.NoError(t, err)
		assert.Nil(t, s)
	}
}

func TestOpen_SQLiteMigrates(t *testing.T) {
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")

	_, err = Open(context.Background(), "mysql", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown driver "mysql"`)
}

func TestListLimit(t *testing.T) {
	assert.Equal(t, 100, listLimit(0))
	assert.Equal(t, 100, listLimit(-3))
	assert.Equal(t, 7, listLimit(7))
}

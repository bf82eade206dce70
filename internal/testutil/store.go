package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/storage"
)

// OpenStore opens a throwaway SQLite store under the test's temp dir
func OpenStore(t *testing.T) *storage.Store {
	t.Helper()

	store, err := storage.Open(zap.NewNop(), filepath.Join(t.TempDir(), "acosd.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

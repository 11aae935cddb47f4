package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

// newTestDB opens a fresh database under a per-test temp dir.
func newTestDB(t *testing.T) *bbolt.DB {
	t.Helper()
	db, err := InitDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

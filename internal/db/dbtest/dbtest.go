// Package dbtest opens throwaway in-memory SQLite databases with the
// application schema applied.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/collegify/collegify/internal/db"
)

var (
	seq     atomic.Int64
	unsafeC = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// Open returns a fresh database private to t. It is closed on cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	name := fmt.Sprintf("%s_%d", unsafeC.ReplaceAllString(t.Name(), "_"), seq.Add(1))
	h, err := db.Open(context.Background(), db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

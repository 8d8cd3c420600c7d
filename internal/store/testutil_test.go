package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var dsnReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

// openTestBackend opens a private in-memory database named after the test.
func openTestBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	b, err := OpenSQLite("file:" + dsnReplacer.Replace(t.Name()) + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close(context.Background()) })
	return b
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	return New(openTestBackend(t))
}

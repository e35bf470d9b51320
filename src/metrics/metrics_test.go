package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lending-desk/lending/src/pkg/migration"
)

func TestCollector(t *testing.T) {
	c := New()

	c.MigrationApplied(migration.Migration{Version: 1}, 20*time.Millisecond)
	c.MigrationApplied(migration.Migration{Version: 2}, 5*time.Millisecond)
	c.MigrationFailed(migration.Migration{Version: 3}, errors.New("boom"))
	c.SchemaVersion(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.applied.WithLabelValues("1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.applied.WithLabelValues("2")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.failures.WithLabelValues("3")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.schemaVersion))
	assert.Greater(t, testutil.ToFloat64(c.lastSuccess), float64(0))
	assert.Equal(t, 2, testutil.CollectAndCount(c.applied))
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := New()
	c.SchemaVersion(4)

	path := filepath.Join(t.TempDir(), "textfile", "lending.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lending_schema_version 4")

	require.NoError(t, c.WriteTextfile(""))
}

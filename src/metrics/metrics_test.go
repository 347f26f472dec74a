package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"FoodDashboard/src/datasource/file"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveLoadAndProcess(t *testing.T) {
	p := New()

	p.ObserveLoad("eggs", file.LoadStats{Read: 7, Missing: 1, Placeholder: 4, Kept: 2})
	p.ObserveProcess("eggs", 1, 1)

	assert.Equal(t, 7.0, testutil.ToFloat64(p.RowsLoaded.WithLabelValues("eggs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.RowsDropped.WithLabelValues("eggs", ReasonMissing)))
	assert.Equal(t, 4.0, testutil.ToFloat64(p.RowsDropped.WithLabelValues("eggs", ReasonPlaceholder)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.RowsDropped.WithLabelValues("eggs", ReasonKeyword)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.RowsPublished.WithLabelValues("eggs")))
}

func TestObserveBuild(t *testing.T) {
	p := New()

	p.ObserveBuild(20*time.Millisecond, nil)
	p.ObserveBuild(time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.Builds.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Builds.WithLabelValues("error")))
	assert.Greater(t, testutil.ToFloat64(p.LastBuild), 0.0)
	assert.Equal(t, 1, testutil.CollectAndCount(p.BuildDuration))
}

func TestNewIsIsolated(t *testing.T) {
	a, b := New(), New()
	a.ObserveProcess("grains", 3, 10)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.RowsPublished.WithLabelValues("grains")))
	assert.Same(t, Default(), Default())
}

func TestWriteTextfile(t *testing.T) {
	p := New()
	p.ObserveProcess("dairy", 2, 6)

	path := filepath.Join(t.TempDir(), "fooddash.prom")
	require.NoError(t, p.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `fooddash_rows_published{dataset="dairy"} 6`)

	assert.NoError(t, p.WriteTextfile(""))
}

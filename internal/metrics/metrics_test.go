package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	o.Observe("notes", "create", 10*time.Millisecond, nil)
	o.Observe("notes", "create", 10*time.Millisecond, errors.New("boom"))
	o.Observe("objects", "remove", time.Millisecond, errors.New("boom"))

	require.Equal(t, float64(1), testutil.ToFloat64(o.failures.WithLabelValues("notes", "create")))
	require.Equal(t, float64(1), testutil.ToFloat64(o.failures.WithLabelValues("objects", "remove")))
	require.Equal(t, 2, testutil.CollectAndCount(o.duration))

	again, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)
	again.Observe("notes", "create", time.Millisecond, errors.New("boom"))
	require.Equal(t, float64(2), testutil.ToFloat64(o.failures.WithLabelValues("notes", "create")))
}

func TestNewGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	g, err := NewGauge("test", "orphans", "orphans", reg)
	require.NoError(t, err)
	g.Set(3)
	same, err := NewGauge("test", "orphans", "orphans", reg)
	require.NoError(t, err)
	require.Equal(t, float64(3), testutil.ToFloat64(same))
}

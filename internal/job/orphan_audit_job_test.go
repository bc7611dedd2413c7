package job

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mshelf/internal/model"
)

type fakeFiles struct {
	rows  []model.FileAsset
	calls int
}

func (f *fakeFiles) ListAfter(ctx context.Context, afterID string, limit uint) ([]model.FileAsset, error) {
	f.calls++
	sort.Slice(f.rows, func(i, j int) bool { return f.rows[i].ID < f.rows[j].ID })
	out := make([]model.FileAsset, 0)
	for _, r := range f.rows {
		if r.ID > afterID && uint(len(out)) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeObjects map[string]bool

func (o fakeObjects) Exists(ctx context.Context, key string) (bool, error) {
	if key == "broken" {
		return false, errors.New("timeout")
	}
	return o[key], nil
}

func TestOrphanAuditJob(t *testing.T) {
	files := &fakeFiles{rows: []model.FileAsset{
		{ID: "01", StoragePath: "u1/a"},
		{ID: "02", StoragePath: "u1/b"},
		{ID: "03", StoragePath: "u2/c"},
		{ID: "04", StoragePath: "broken"},
		{ID: "05", StoragePath: "u2/e"},
	}}
	objects := fakeObjects{"u1/a": true, "u2/c": true, "u2/e": true}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "orphans"})
	j := NewOrphanAuditJob(files, objects, gauge)
	j.batch = 2

	report, err := j.Audit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, report.Scanned)
	require.Len(t, report.Orphaned, 1)
	require.Equal(t, "02", report.Orphaned[0].ID)
	require.Equal(t, 3, files.calls)
	require.Equal(t, float64(1), testutil.ToFloat64(gauge))

	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, "orphan_audit", j.Name())
}

func TestOrphanAuditJob_Unconfigured(t *testing.T) {
	report, err := NewOrphanAuditJob(nil, nil, nil).Audit(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Scanned)
}

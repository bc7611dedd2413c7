package job

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mshelf/internal/model"
)

const defaultAuditBatch = 200

type fileLister interface {
	ListAfter(ctx context.Context, afterID string, limit uint) ([]model.FileAsset, error)
}

type objectChecker interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// OrphanAuditJob finds file rows whose binary is gone, the state a failed
// two-phase delete leaves behind. It only reports; rows are never removed.
type OrphanAuditJob struct {
	files   fileLister
	objects objectChecker
	batch   uint
	orphans prometheus.Gauge
}

func NewOrphanAuditJob(files fileLister, objects objectChecker, orphans prometheus.Gauge) *OrphanAuditJob {
	return &OrphanAuditJob{files: files, objects: objects, batch: defaultAuditBatch, orphans: orphans}
}

type AuditReport struct {
	Scanned  int
	Orphaned []model.FileAsset
}

func (j *OrphanAuditJob) Name() string {
	return "orphan_audit"
}

func (j *OrphanAuditJob) Run(ctx context.Context) error {
	report, err := j.Audit(ctx)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("orphan audit finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("orphaned", len(report.Orphaned)),
	)
	return nil
}

func (j *OrphanAuditJob) Audit(ctx context.Context) (*AuditReport, error) {
	if j.files == nil || j.objects == nil {
		return &AuditReport{}, nil
	}
	report := &AuditReport{}
	after := ""
	for {
		page, err := j.files.ListAfter(ctx, after, j.batch)
		if err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		for _, f := range page {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			report.Scanned++
			ok, err := j.objects.Exists(ctx, f.StoragePath)
			if err != nil {
				logutil.GetLogger(ctx).Warn("orphan audit check failed", zap.String("id", f.ID), zap.Error(err))
				continue
			}
			if !ok {
				report.Orphaned = append(report.Orphaned, f)
				logutil.GetLogger(ctx).Warn("file row without binary",
					zap.String("id", f.ID),
					zap.String("user_id", f.UserID),
					zap.String("storage_path", f.StoragePath),
				)
			}
		}
		if len(page) == 0 || uint(len(page)) < j.batch {
			break
		}
		after = page[len(page)-1].ID
	}
	if j.orphans != nil {
		j.orphans.Set(float64(len(report.Orphaned)))
	}
	return report, nil
}

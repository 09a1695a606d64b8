package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docuseek/docqa/internal/service"
)

// ReconcileJob sweeps stuck documents forward in the background. The
// read path already reconciles on demand; this catches documents nobody
// is polling.
type ReconcileJob struct {
	docs *service.DocumentService
}

func NewReconcileJob(docs *service.DocumentService) *ReconcileJob {
	return &ReconcileJob{docs: docs}
}

func (j *ReconcileJob) Name() string {
	return "document_status_reconcile"
}

func (j *ReconcileJob) Run(ctx context.Context) error {
	if j.docs == nil {
		return nil
	}
	moved, err := j.docs.ReconcileAll(ctx)
	if err != nil {
		return err
	}
	if moved > 0 {
		logutil.GetLogger(ctx).Info("documents reconciled", zap.Int("moved", moved))
	}
	return nil
}

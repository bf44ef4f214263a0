package service

import (
	"context"
	"encoding/json"
	"fmt"

	"rehearsal-hub/core/logger"
	"rehearsal-hub/core/storage"
	"rehearsal-hub/modules/sync/dto"
)

// ReportArchiver uploads run summaries for offline inspection. Archiving is
// best effort and never fails a sync run.
type ReportArchiver struct {
	objects storage.ObjectStore
}

func NewReportArchiver(objects storage.ObjectStore) *ReportArchiver {
	return &ReportArchiver{objects: objects}
}

func (a *ReportArchiver) Archive(ctx context.Context, report dto.RunReport) {
	if a == nil || a.objects == nil {
		return
	}

	raw, err := json.Marshal(report)
	if err != nil {
		logger.Warn("ReportArchiver:Marshal:Error", "run_id", report.RunID, "error", err)
		return
	}

	key := fmt.Sprintf("sync-reports/%s/%s/%s.json",
		report.StartedAt.UTC().Format("2006-01-02"), report.Kind, report.RunID)
	if err := a.objects.Put(ctx, key, raw, "application/json"); err != nil {
		logger.Warn("ReportArchiver:Upload:Error", "run_id", report.RunID, "key", key, "error", err)
	}
}

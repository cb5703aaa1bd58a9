package jobqueue

import (
	"context"
	"fmt"
)

// processFetchDataJob pulls one platform's reporting data in the
// background. The record count lands in the job result for polling
// clients.
func (q *Queue) processFetchDataJob(ctx context.Context, job *Job) error {
	payload, err := FetchDataJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid fetch payload: %w", err)
	}

	provider, err := q.registry.Get(payload.Platform)
	if err != nil {
		return err
	}

	count, err := provider.FetchPerformanceData(ctx, payload.UserID, payload.AccountID, payload.Since, payload.Until)
	if err != nil {
		return err
	}

	job.Result = map[string]interface{}{
		"records": count,
		"since":   payload.Since,
		"until":   payload.Until,
	}
	return nil
}

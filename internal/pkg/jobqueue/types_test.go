package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycleTransitions(t *testing.T) {
	job := &Job{
		ID:         "j1",
		Type:       JobTypeFetchData,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now(),
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
}

func TestJobRetryAccounting(t *testing.T) {
	job := &Job{MaxRetries: 2}

	for i := 0; i < 2; i++ {
		job.MarkAsFailed("boom")
		assert.True(t, job.IsRetryable(), "attempt %d", i)
		job.MarkAsRetrying()
	}

	job.MarkAsFailed("boom")
	assert.Equal(t, 3, job.RetryCount)
	// third failure exhausts maxRetries=2 plus the original attempt
	assert.False(t, job.IsRetryable())
	assert.Equal(t, "boom", job.ErrorMsg)
}

func TestFetchDataPayloadRoundTrip(t *testing.T) {
	payload := FetchDataJobPayload{
		UserID:    7,
		Platform:  "facebook",
		AccountID: "act_123",
		Since:     "2026-07-01",
		Until:     "2026-07-31",
	}

	restored, err := FetchDataJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

func TestFetchDataPayloadFromMapRejectsWrongTypes(t *testing.T) {
	_, err := FetchDataJobPayloadFromMap(map[string]interface{}{
		"user_id": "not a number",
	})
	assert.Error(t, err)
}

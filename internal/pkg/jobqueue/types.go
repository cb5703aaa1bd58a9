package jobqueue

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrQueueNotRunning means Setup has not been called yet.
var ErrQueueNotRunning = errors.New("job queue is not running")

// JobType defines the type of job
type JobType string

const (
	JobTypeFetchData JobType = "fetch_data"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	Result      map[string]interface{} `json:"result,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// MarkAsProcessing marks the job as currently being worked on
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkAsCompleted marks the job as successfully finished
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsFailed records the failure and bumps the retry counter
func (j *Job) MarkAsFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMsg = errMsg
	j.RetryCount++
	j.UpdatedAt = time.Now()
}

// MarkAsRetrying marks the job as queued for another attempt
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

// IsRetryable reports whether the job has retry attempts left
func (j *Job) IsRetryable() bool {
	return j.RetryCount <= j.MaxRetries
}

// FetchDataJobPayload contains the payload for background data fetches
type FetchDataJobPayload struct {
	UserID    uint   `json:"user_id"`
	Platform  string `json:"platform"`
	AccountID string `json:"account_id"`
	Since     string `json:"since"`
	Until     string `json:"until"`
}

// ToMap converts the payload to a map for storage
func (p FetchDataJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    p.UserID,
		"platform":   p.Platform,
		"account_id": p.AccountID,
		"since":      p.Since,
		"until":      p.Until,
	}
}

// FetchDataJobPayloadFromMap creates a payload from a stored map
func FetchDataJobPayloadFromMap(data map[string]interface{}) (*FetchDataJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload FetchDataJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

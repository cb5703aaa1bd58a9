package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/nmarkov/adpulse/internal/pkg/jobqueue"
	"github.com/nmarkov/adpulse/internal/pkg/statistics"
	"github.com/nmarkov/adpulse/internal/pkg/usercontext"
)

// HandleGetJob returns the status of a background fetch job. Jobs are
// only visible to the user who queued them.
func HandleGetJob(c *fiber.Ctx) error {
	queue := jobqueue.GetQueue()
	if queue == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "Background fetching is unavailable")
	}

	job, err := queue.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "Job not found")
	}

	payload, err := jobqueue.FetchDataJobPayloadFromMap(job.Payload)
	if err != nil || payload.UserID != usercontext.GetUserID(c) {
		return jsonError(c, fiber.StatusNotFound, "Job not found")
	}

	resp := fiber.Map{
		"id":       job.ID,
		"status":   job.Status,
		"platform": payload.Platform,
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Status == jobqueue.JobStatusFailed && !job.IsRetryable() {
		resp["error"] = job.ErrorMsg
	}
	return jsonOK(c, resp)
}

// HandleAdminStatistics returns service-wide dataset totals and queue
// depths. Admin only.
func HandleAdminStatistics(c *fiber.Ctx) error {
	stats := statistics.GetStatisticsData()

	resp := fiber.Map{
		"statistics": stats,
	}
	if queue := jobqueue.GetQueue(); queue != nil {
		pending, err := queue.GetQueueSize(c.Context())
		if err != nil {
			log.Printf("admin statistics: queue size failed: %v", err)
		}
		processing, err := queue.GetProcessingSize(c.Context())
		if err != nil {
			log.Printf("admin statistics: processing size failed: %v", err)
		}
		jobStats, err := queue.GetJobStats(c.Context())
		if err != nil {
			log.Printf("admin statistics: job stats failed: %v", err)
		}
		resp["jobs"] = fiber.Map{
			"pending":    pending,
			"processing": processing,
			"totals":     jobStats,
		}
	}
	return jsonOK(c, resp)
}

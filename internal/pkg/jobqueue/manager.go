package jobqueue

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/nmarkov/adpulse/internal/pkg/connect"
)

var (
	globalQueue *Queue
	globalMu    sync.Mutex
)

// Setup creates and starts the global queue. Safe to call once from main.
func Setup(workers int, registry *connect.Registry) *Queue {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalQueue != nil {
		return globalQueue
	}
	globalQueue = NewQueue(workers, registry)
	globalQueue.Start()
	return globalQueue
}

// GetQueue returns the global queue, nil before Setup.
func GetQueue() *Queue {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalQueue
}

// Shutdown stops the global queue workers.
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalQueue == nil {
		return
	}
	globalQueue.Stop()
	globalQueue = nil
	log.Info("[JobQueue] Shutdown complete")
}

// EnqueueFetch queues a background data fetch for one platform.
func EnqueueFetch(payload FetchDataJobPayload) (*Job, error) {
	q := GetQueue()
	if q == nil {
		return nil, ErrQueueNotRunning
	}
	return q.EnqueueJob(JobTypeFetchData, payload.ToMap())
}

// Package queue schedules inspection report rendering on asynq.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// RenderReportTask is scheduled each time an inspection is created or edited.
	RenderReportTask = "inspection:pdf"
)

// RenderPayload identifies the inspection to render
type RenderPayload struct {
	InspectionID uint `json:"inspection_id"`
}

// NewRenderTask builds a render task for an inspection
func NewRenderTask(inspectionID uint) (*asynq.Task, error) {
	data, err := json.Marshal(RenderPayload{InspectionID: inspectionID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(RenderReportTask, data,
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
	), nil
}

// Enqueuer sends render tasks to redis
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer connects an asynq client
func NewEnqueuer(redisAddr string) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// EnqueueRender schedules a report render for an inspection
func (e *Enqueuer) EnqueueRender(ctx context.Context, inspectionID uint) error {
	task, err := NewRenderTask(inspectionID)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue render task: %w", err)
	}
	return nil
}

// Close releases the redis connection
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/models"
)

// Renderer produces the report of one inspection
type Renderer interface {
	Generate(ctx context.Context, inspectionID uint) (*models.InspectionPdf, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	renderer Renderer
	log      *logger.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(renderer Renderer, log *logger.Logger) *Processor {
	return &Processor{renderer: renderer, log: log.With("component", "worker")}
}

// Handler registers the render job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(RenderReportTask, p.HandleRender)
	return mux
}

// HandleRender renders one report. Deleted inspections are dropped without retry.
func (p *Processor) HandleRender(ctx context.Context, task *asynq.Task) error {
	var payload RenderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.InspectionID == 0 {
		return fmt.Errorf("missing inspection id: %w", asynq.SkipRetry)
	}

	if _, err := p.renderer.Generate(ctx, payload.InspectionID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			p.log.Warn("inspection gone, dropping render", "inspection_id", payload.InspectionID)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	p.log.Info("report rendered", "inspection_id", payload.InspectionID)
	return nil
}

package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/models"
)

type stubRenderer struct {
	calls []uint
	err   error
}

func (s *stubRenderer) Generate(ctx context.Context, id uint) (*models.InspectionPdf, error) {
	s.calls = append(s.calls, id)
	if s.err != nil {
		return nil, s.err
	}
	return &models.InspectionPdf{InspectionID: id, Status: models.PdfStatusGenerated}, nil
}

func TestHandleRenderDecodesPayload(t *testing.T) {
	r := &stubRenderer{}
	p := NewProcessor(r, logger.Nop())

	task, err := NewRenderTask(12)
	if err != nil {
		t.Fatalf("NewRenderTask() error = %v", err)
	}
	if task.Type() != RenderReportTask {
		t.Errorf("task type = %s", task.Type())
	}
	if err := p.HandleRender(context.Background(), task); err != nil {
		t.Fatalf("HandleRender() error = %v", err)
	}
	if len(r.calls) != 1 || r.calls[0] != 12 {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestHandleRenderSkipsRetryForBadInput(t *testing.T) {
	r := &stubRenderer{}
	p := NewProcessor(r, logger.Nop())

	err := p.HandleRender(context.Background(), asynq.NewTask(RenderReportTask, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("malformed payload error = %v", err)
	}

	r.err = apperr.NotFound("inspection not found")
	task, _ := NewRenderTask(3)
	if err := p.HandleRender(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("missing inspection error = %v", err)
	}

	r.err = errors.New("storage down")
	if err := p.HandleRender(context.Background(), task); err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Errorf("transient error should be retried, got %v", err)
	}
}

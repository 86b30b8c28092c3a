package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/railwayapp/switchyard/internal/model"
)

// Processor is one stage of bringing an application up, such as rewriting
// service descriptions or launching processes
type Processor interface {
	Name() string
	Start(ctx context.Context, app *model.Application) error
	Stop(ctx context.Context, app *model.Application) error
}

// Host starts processors in order and stops them in reverse
type Host struct {
	logger     *slog.Logger
	processors []Processor
	started    []Processor
}

func New(logger *slog.Logger, processors ...Processor) *Host {
	return &Host{logger: logger, processors: processors}
}

// Start runs every processor's Start. If one fails, the processors already
// started are stopped before the error is returned.
func (h *Host) Start(ctx context.Context, app *model.Application) error {
	for _, processor := range h.processors {
		h.logger.Debug("Starting processor", "processor", processor.Name())
		if err := processor.Start(ctx, app); err != nil {
			startErr := fmt.Errorf("processor %s: %w", processor.Name(), err)
			if stopErr := h.Stop(ctx, app); stopErr != nil {
				return errors.Join(startErr, stopErr)
			}
			return startErr
		}
		h.started = append(h.started, processor)
	}
	return nil
}

// Stop stops started processors in reverse order, continuing past failures
func (h *Host) Stop(ctx context.Context, app *model.Application) error {
	var errs []error
	for i := len(h.started) - 1; i >= 0; i-- {
		processor := h.started[i]
		h.logger.Debug("Stopping processor", "processor", processor.Name())
		if err := processor.Stop(ctx, app); err != nil {
			errs = append(errs, fmt.Errorf("processor %s: %w", processor.Name(), err))
		}
	}
	h.started = nil
	return errors.Join(errs...)
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
)

const deferredDeliveryBatchSize = 200

type DeferredDeliveryJobParams struct {
	Logger    *logger.Logger
	Deliverer dueDeliverer
	BatchSize int
}

type dueDeliverer interface {
	DeliverDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// NewDeferredDeliveryJob drains notifications whose quiet window closed or
// whose batch window elapsed.
func NewDeferredDeliveryJob(params DeferredDeliveryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Deliverer == nil {
		return nil, fmt.Errorf("delivery service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = deferredDeliveryBatchSize
	}
	return &deferredDeliveryJob{
		logg:  params.Logger,
		svc:   params.Deliverer,
		batch: batch,
		now:   time.Now,
	}, nil
}

type deferredDeliveryJob struct {
	logg  *logger.Logger
	svc   dueDeliverer
	batch int
	now   func() time.Time
}

func (j *deferredDeliveryJob) Name() string { return "deferred-delivery" }

func (j *deferredDeliveryJob) Run(ctx context.Context) error {
	total := 0
	// Drain in batches until the due backlog is empty.
	for {
		processed, err := j.svc.DeliverDue(ctx, j.now().UTC(), j.batch)
		if err != nil {
			return fmt.Errorf("deferred delivery: %w", err)
		}
		total += processed
		if processed < j.batch {
			break
		}
	}
	logCtx := j.logg.WithField(ctx, "notifications_processed", total)
	j.logg.Info(logCtx, "deferred delivery sweep complete")
	return nil
}

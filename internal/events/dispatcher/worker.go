// Package dispatcher drains the billing_events outbox. Downstream delivery is
// a structured log line today; the claim loop is where a broker hand-off
// would slot in.
package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/classbridge/feeledger/internal/events"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config Config `optional:"true"`
}

type Worker struct {
	db  *gorm.DB
	log *zap.Logger
	cfg Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:  p.DB,
		log: p.Log.Named("events.dispatcher"),
		cfg: p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(); err != nil {
			w.log.Warn("outbox dispatch run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := w.DispatchBatch(ctx, w.cfg.BatchSize)
	return err
}

// DispatchBatch claims up to limit unpublished events and marks them
// published. SKIP LOCKED keeps concurrent dispatchers off each other's rows.
func (w *Worker) DispatchBatch(ctx context.Context, limit int) (int, error) {
	if w.db == nil {
		return 0, errors.New("dispatcher_unavailable")
	}
	if limit <= 0 {
		limit = w.cfg.BatchSize
	}

	dispatched := 0
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []events.BillingEvent
		if err := tx.WithContext(ctx).Raw(
			`SELECT id, event_type, payload, dedupe_key, published, created_at
			 FROM billing_events
			 WHERE published = false
			 ORDER BY id
			 FOR UPDATE SKIP LOCKED
			 LIMIT ?`,
			limit,
		).Scan(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(rows))
		for _, row := range rows {
			w.log.Info("billing event dispatched",
				zap.Int64("event_id", int64(row.ID)),
				zap.String("event_type", row.EventType),
			)
			ids = append(ids, int64(row.ID))
		}

		if err := tx.WithContext(ctx).
			Model(&events.BillingEvent{}).
			Where("id IN ?", ids).
			Update("published", true).Error; err != nil {
			return err
		}
		dispatched = len(ids)
		return nil
	})
	if err != nil {
		return dispatched, err
	}
	return dispatched, nil
}

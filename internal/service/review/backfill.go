package review

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/generation"
	"golang.org/x/sync/errgroup"
)

// backfillItems asks the generator for the missing fields of every
// unprintable item, one attempt each with no upstream retries. Generator
// failures leave the item unprintable.
func (a *ExamAssembler) backfillItems(ctx context.Context, log *slog.Logger, items map[string]*domain.Item) {
	var pending []*domain.Item
	for _, item := range items {
		if !item.Printable() {
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		return
	}

	var filled, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.backfill.Concurrency)

	for _, item := range pending {
		g.Go(func() error {
			if err := a.limiter.Wait(gctx); err != nil {
				return err
			}

			fields, err := a.generator.Generate(generation.WithoutRetry(gctx), item.ID, item.Text)
			if err != nil || !fields.Complete() {
				failed.Add(1)
				attrs := []any{slog.String("item_id", item.ID)}
				if err != nil {
					attrs = append(attrs, slog.String("error", err.Error()))
				}
				log.Warn("backfill generation failed", attrs...)
				return nil
			}

			if err := a.items.UpdateFields(gctx, item.ID, fields.Reading, fields.Meaning); err != nil {
				failed.Add(1)
				log.Warn("failed to store generated fields",
					slog.String("item_id", item.ID),
					slog.String("error", err.Error()))
				return nil
			}
			filled.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn("backfill interrupted", slog.String("error", err.Error()))
	}

	log.Info("backfill finished",
		slog.Int("pending", len(pending)),
		slog.Int("filled", int(filled.Load())),
		slog.Int("failed", int(failed.Load())))
}

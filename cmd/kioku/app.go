package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/kioku-api/internal/config"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/domain/schedule"
	"github.com/phrazzld/kioku-api/internal/generation"
	"github.com/phrazzld/kioku-api/internal/platform/gemini"
	"github.com/phrazzld/kioku-api/internal/platform/openai"
	"github.com/phrazzld/kioku-api/internal/platform/postgres"
	"github.com/phrazzld/kioku-api/internal/platform/redis"
	"github.com/phrazzld/kioku-api/internal/service/content"
	"github.com/phrazzld/kioku-api/internal/service/review"
	"github.com/phrazzld/kioku-api/internal/store"
)

// application holds the wired dependencies of one command invocation.
type application struct {
	db  *sql.DB
	rdb goredis.UniversalClient

	candidates store.CandidateStore
	exams      store.ExamStore
	items      store.ItemStore

	content    *content.Service
	assembler  *review.ExamAssembler
	reconciler *review.GradingReconciler
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	dates, err := calendar.NewSystemProviderForZone(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, err
	}
	policy := newPolicy(cfg.Scheduler)

	db, err := setupDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	app := &application{
		db:    db,
		exams: postgres.NewPostgresExamStore(db, logger),
		items: postgres.NewPostgresItemStore(db, logger),
	}

	switch cfg.Scheduler.CandidateBackend {
	case config.BackendRedis:
		rdb, err := setupRedis(ctx, cfg.Redis, logger)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.rdb = rdb
		app.candidates = redis.NewCandidateStore(rdb, cfg.Redis.KeyPrefix, logger)
	default:
		app.candidates = postgres.NewPostgresCandidateStore(db, logger)
	}

	opts := []review.AssemblerOption{
		review.WithBackfill(review.BackfillConfig{
			Concurrency:       cfg.Backfill.Concurrency,
			RequestsPerSecond: cfg.Backfill.RequestsPerSecond,
		}),
	}
	gen, err := newGenerator(ctx, cfg.LLM, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if gen != nil {
		opts = append(opts, review.WithGenerator(gen))
	}

	app.content = content.NewService(app.items, app.candidates, policy, dates, logger)
	app.assembler = review.NewExamAssembler(app.candidates, app.exams, app.items, dates, logger, opts...)
	app.reconciler = review.NewGradingReconciler(app.candidates, app.exams, policy, dates, logger)

	logger.Debug("application initialized",
		slog.String("candidate_backend", cfg.Scheduler.CandidateBackend),
		slog.Bool("backfill_enabled", gen != nil))
	return app, nil
}

// Close releases the database and redis connections.
func (a *application) Close() error {
	var errs []error
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func newPolicy(cfg config.SchedulerConfig) schedule.Policy {
	return schedule.NewPolicyWithParams(schedule.NewParams(schedule.ParamsConfig{
		GraduationStreak:       cfg.GraduationStreak,
		MaterialIncorrectDays:  cfg.MaterialIncorrectDays,
		MaterialCorrectDays:    cfg.MaterialCorrectDays,
		KanjiInitialDays:       cfg.KanjiInitialDays,
		KanjiIncorrectDays:     cfg.KanjiIncorrectDays,
		KanjiFirstCorrectDays:  cfg.KanjiFirstCorrectDays,
		KanjiSecondCorrectDays: cfg.KanjiSecondCorrectDays,
	}))
}

// newGenerator returns nil when no provider is configured.
func newGenerator(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.FieldGenerator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.NewGeminiGenerator(ctx, logger, cfg)
	case config.ProviderOpenAI:
		return openai.NewGenerator(logger, cfg)
	case config.ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/phrazzld/kioku-api/internal/store"
)

const examColumns = `id, subject, mode, status, created_date, submitted_date, target_ids, results,
	created_at, updated_at`

const examExistsQuery = `SELECT EXISTS(SELECT 1 FROM exams WHERE id = $1)`

// PostgresExamStore implements the store.ExamStore interface
// using a PostgreSQL database as the storage backend.
type PostgresExamStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresExamStore creates a new PostgreSQL implementation of the ExamStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresExamStore(db store.DBTX, logger *slog.Logger) *PostgresExamStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresExamStore{
		db:     db,
		logger: logger.With(slog.String("component", "exam_store")),
	}
}

// Ensure PostgresExamStore implements store.ExamStore interface
var _ store.ExamStore = (*PostgresExamStore)(nil)

func marshalResults(results []domain.ItemResult) ([]byte, error) {
	if results == nil {
		results = []domain.ItemResult{}
	}
	return json.Marshal(results)
}

func scanExam(row rowScanner) (*domain.Exam, error) {
	var (
		e           domain.Exam
		mode        string
		status      string
		created     time.Time
		submitted   sql.NullTime
		targetsJSON []byte
		resultsJSON []byte
	)
	if err := row.Scan(
		&e.ID,
		&e.Subject,
		&mode,
		&status,
		&created,
		&submitted,
		&targetsJSON,
		&resultsJSON,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	e.Mode = domain.Mode(mode)
	e.Status = domain.ExamStatus(status)
	e.CreatedDate = calendar.FromStoredTime(created)
	if submitted.Valid {
		d := calendar.FromStoredTime(submitted.Time)
		e.SubmittedDate = &d
	}
	if err := json.Unmarshal(targetsJSON, &e.TargetIDs); err != nil {
		return nil, fmt.Errorf("failed to decode exam target ids: %w", err)
	}
	if err := json.Unmarshal(resultsJSON, &e.Results); err != nil {
		return nil, fmt.Errorf("failed to decode exam results: %w", err)
	}
	if len(e.Results) == 0 {
		e.Results = nil
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

// Create implements store.ExamStore.Create
func (s *PostgresExamStore) Create(ctx context.Context, exam *domain.Exam) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := exam.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	targets := exam.TargetIDs
	if targets == nil {
		targets = []string{}
	}
	targetsJSON, err := json.Marshal(targets)
	if err != nil {
		return fmt.Errorf("failed to encode exam target ids: %w", err)
	}
	resultsJSON, err := marshalResults(exam.Results)
	if err != nil {
		return fmt.Errorf("failed to encode exam results: %w", err)
	}

	var submitted sql.NullString
	if exam.SubmittedDate != nil {
		submitted = sql.NullString{String: exam.SubmittedDate.String(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO exams (`+examColumns+`)
		VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8, $9, $10)`,
		exam.ID,
		exam.Subject,
		string(exam.Mode),
		string(exam.Status),
		exam.CreatedDate.String(),
		submitted,
		string(targetsJSON),
		string(resultsJSON),
		exam.CreatedAt,
		exam.UpdatedAt,
	)
	if err != nil {
		err = MapError(err)
		log.Error("failed to create exam",
			slog.String("exam_id", exam.ID.String()),
			slog.String("error", err.Error()))
		return err
	}

	log.Info("exam created",
		slog.String("exam_id", exam.ID.String()),
		slog.String("subject", exam.Subject),
		slog.String("mode", string(exam.Mode)),
		slog.Int("item_count", len(exam.TargetIDs)))
	return nil
}

// GetByID implements store.ExamStore.GetByID
func (s *PostgresExamStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Exam, error) {
	exam, err := scanExam(s.db.QueryRowContext(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrExamNotFound
		}
		return nil, MapError(err)
	}
	return exam, nil
}

// ListBySubject implements store.ExamStore.ListBySubject
func (s *PostgresExamStore) ListBySubject(
	ctx context.Context,
	subject string,
	status *domain.ExamStatus,
) ([]*domain.Exam, error) {
	var statusArg sql.NullString
	if status != nil {
		statusArg = sql.NullString{String: string(*status), Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+examColumns+`
		FROM exams
		WHERE subject = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id`, subject, statusArg)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var exams []*domain.Exam
	for rows.Next() {
		exam, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exam: %w", err)
		}
		exams = append(exams, exam)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return exams, nil
}

// RecordResults implements store.ExamStore.RecordResults
func (s *PostgresExamStore) RecordResults(
	ctx context.Context,
	id uuid.UUID,
	results []domain.ItemResult,
	updatedAt time.Time,
) error {
	resultsJSON, err := marshalResults(results)
	if err != nil {
		return fmt.Errorf("failed to encode exam results: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE exams SET results = $2, updated_at = $3
		WHERE id = $1 AND status = 'in_progress'`,
		id, string(resultsJSON), updatedAt.UTC())
	if err != nil {
		return MapError(err)
	}
	return checkConditional(ctx, s.db, result, store.ErrExamNotFound, examExistsQuery, id)
}

// MarkCompleted implements store.ExamStore.MarkCompleted
func (s *PostgresExamStore) MarkCompleted(
	ctx context.Context,
	id uuid.UUID,
	submitted calendar.Date,
	results []domain.ItemResult,
	updatedAt time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	resultsJSON, err := marshalResults(results)
	if err != nil {
		return fmt.Errorf("failed to encode exam results: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE exams
		SET status = 'completed', submitted_date = $2::date, results = $3, updated_at = $4
		WHERE id = $1 AND status = 'in_progress'`,
		id, submitted.String(), string(resultsJSON), updatedAt.UTC())
	if err != nil {
		return MapError(err)
	}
	if err := checkConditional(ctx, s.db, result, store.ErrExamNotFound, examExistsQuery, id); err != nil {
		return err
	}

	log.Info("exam completed",
		slog.String("exam_id", id.String()),
		slog.String("submitted_date", submitted.String()))
	return nil
}

// Delete implements store.ExamStore.Delete
func (s *PostgresExamStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrExamNotFound); err != nil {
		return err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("exam deleted",
		slog.String("exam_id", id.String()))
	return nil
}

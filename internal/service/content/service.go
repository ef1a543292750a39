package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/domain/schedule"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/phrazzld/kioku-api/internal/store"
)

// ErrFieldsRequired is returned when generated fields are blank.
var ErrFieldsRequired = fmt.Errorf("%w: reading and meaning are required", domain.ErrValidation)

// ServiceError wraps errors from the content service with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "register_item", "remove_item")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// RegisterRequest describes a new reviewable item.
type RegisterRequest struct {
	ID      string
	Subject string
	Mode    domain.Mode
	Text    string
	Reading string
	Meaning string
}

// Service registers and removes reviewable items.
type Service struct {
	items      store.ItemStore
	candidates store.CandidateStore
	policy     schedule.Policy
	dates      calendar.Provider
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a content service. All collaborators are required.
func NewService(
	items store.ItemStore,
	candidates store.CandidateStore,
	policy schedule.Policy,
	dates calendar.Provider,
	log *slog.Logger,
) *Service {
	if items == nil {
		panic("items cannot be nil")
	}
	if candidates == nil {
		panic("candidates cannot be nil")
	}
	if policy == nil {
		panic("policy cannot be nil")
	}
	if dates == nil {
		panic("dates cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		items:      items,
		candidates: candidates,
		policy:     policy,
		dates:      dates,
		logger:     log.With(slog.String("component", "content_service")),
		now:        time.Now,
	}
}

// Register stores the item and creates its initial open candidate, due per
// the policy's no-history branch. If the candidate cannot be created the item
// is removed again.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.Item, *domain.ReviewCandidate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	item, err := domain.NewItem(req.ID, req.Subject, req.Mode, req.Text, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	item.Reading = strings.TrimSpace(req.Reading)
	item.Meaning = strings.TrimSpace(req.Meaning)

	registered := s.dates.Today()
	due, err := s.policy.Initial(item.Mode, registered)
	if err != nil {
		return nil, nil, &ServiceError{Operation: "register_item", Message: "failed to compute initial due date", Err: err}
	}

	candidate, err := domain.NewReviewCandidate(item.Subject, item.ID, item.Mode, due, 0, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, nil, &ServiceError{Operation: "register_item", Message: "failed to store item", Err: err}
	}

	if err := s.candidates.Create(ctx, candidate); err != nil {
		if store.IsDuplicateError(err) {
			log.Warn("item already has an active candidate",
				slog.String("item_id", item.ID),
				slog.String("subject", item.Subject))
		}
		if delErr := s.items.Delete(context.WithoutCancel(ctx), item.ID); delErr != nil {
			log.Error("failed to remove item after candidate creation failed",
				slog.String("item_id", item.ID),
				slog.String("error", delErr.Error()))
		}
		return nil, nil, &ServiceError{Operation: "register_item", Message: "failed to create initial candidate", Err: err}
	}

	log.Info("item registered",
		slog.String("item_id", item.ID),
		slog.String("subject", item.Subject),
		slog.String("mode", string(item.Mode)),
		slog.String("next_time", due.String()),
		slog.Bool("printable", item.Printable()))
	return item, candidate, nil
}

// removeAttempts bounds how many times Remove re-lists candidates after a
// concurrent writer changed one of them.
const removeAttempts = 3

// Remove takes every active candidate of the item out of the pool and then
// deletes the item. Open candidates are deleted; a candidate locked by an
// exam is closed into history so that grading the exam cannot schedule it
// again. It returns the number of candidates removed.
func (s *Service) Remove(ctx context.Context, subject, itemID string) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("subject", subject),
		slog.String("item_id", itemID))

	removed := 0
	for attempt := 0; ; attempt++ {
		n, settled, err := s.removeActive(ctx, log, subject, itemID)
		removed += n
		if err != nil {
			return removed, &ServiceError{Operation: "remove_item", Message: "failed to remove candidates", Err: err}
		}
		if settled {
			break
		}
		if attempt+1 == removeAttempts {
			return removed, &ServiceError{
				Operation: "remove_item",
				Message:   "candidates kept changing during removal",
				Err:       store.ErrConditionFailed,
			}
		}
	}

	if err := s.items.Delete(ctx, itemID); err != nil {
		if store.IsNotFoundError(err) && removed > 0 {
			log.Warn("item already gone")
			return removed, nil
		}
		return removed, err
	}

	log.Info("item removed", slog.Int("candidates_removed", removed))
	return removed, nil
}

// removeActive makes one pass over the item's active candidates. settled is
// false when a conditional write was lost and the pass must be repeated.
func (s *Service) removeActive(ctx context.Context, log *slog.Logger, subject, itemID string) (int, bool, error) {
	history, err := s.candidates.ListByTarget(ctx, itemID)
	if err != nil {
		return 0, false, err
	}

	removed := 0
	settled := true
	for _, c := range history {
		if c.Subject != subject || !c.Status.Active() {
			continue
		}

		if c.Status == domain.CandidateStatusLocked {
			err = s.candidates.CloseLocked(ctx, c.Subject, c.ID, nil, s.now())
		} else {
			err = s.candidates.Delete(ctx, c.Subject, c.ID)
		}
		switch {
		case err == nil:
			removed++
			if c.Status == domain.CandidateStatusLocked {
				log.Info("closed candidate held by exam",
					slog.String("candidate_id", c.ID.String()),
					slog.String("owner_id", c.LockOwnerID.String()))
			}
		case store.IsConditionFailed(err) || store.IsNotFoundError(err):
			settled = false
		default:
			return removed, false, err
		}
	}
	return removed, settled, nil
}

// UpdateFields stores generated display fields on an item.
func (s *Service) UpdateFields(ctx context.Context, itemID, reading, meaning string) error {
	reading = strings.TrimSpace(reading)
	meaning = strings.TrimSpace(meaning)
	if reading == "" || meaning == "" {
		return ErrFieldsRequired
	}
	return s.items.UpdateFields(ctx, itemID, reading, meaning)
}

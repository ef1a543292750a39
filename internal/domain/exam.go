package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
)

// ExamStatus is the lifecycle state of an exam.
type ExamStatus string

// Exam lifecycle states.
const (
	ExamStatusInProgress ExamStatus = "in_progress"
	ExamStatusCompleted  ExamStatus = "completed"
)

// Exam-specific validation errors
var (
	ErrExamIDEmpty        = errors.New("exam ID cannot be empty")
	ErrInvalidCreatedDate = errors.New("exam created date must be a YYYY-MM-DD date")
)

// ItemResult is the graded outcome of one exam item.
type ItemResult struct {
	TargetID string `json:"target_id"`
	Correct  bool   `json:"correct"`
}

// Exam is a test assembled from locked review candidates.
type Exam struct {
	ID            uuid.UUID      `json:"id"`
	Subject       string         `json:"subject"`
	Mode          Mode           `json:"mode"`
	Status        ExamStatus     `json:"status"`
	CreatedDate   calendar.Date  `json:"created_date"`
	SubmittedDate *calendar.Date `json:"submitted_date,omitempty"`
	TargetIDs     []string       `json:"target_ids"`
	Results       []ItemResult   `json:"results,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewExam creates an in-progress exam with a fresh ID.
func NewExam(id uuid.UUID, subject string, mode Mode, createdDate calendar.Date, targetIDs []string, now time.Time) (*Exam, error) {
	exam := &Exam{
		ID:          id,
		Subject:     subject,
		Mode:        mode,
		Status:      ExamStatusInProgress,
		CreatedDate: createdDate,
		TargetIDs:   append([]string(nil), targetIDs...),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}

	if err := exam.Validate(); err != nil {
		return nil, err
	}

	return exam, nil
}

// Validate checks if the Exam has valid data.
func (e *Exam) Validate() error {
	if e.ID == uuid.Nil {
		return ErrExamIDEmpty
	}
	if e.Subject == "" {
		return ErrEmptySubject
	}
	if !e.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, e.Mode)
	}
	if e.Status != ExamStatusInProgress && e.Status != ExamStatusCompleted {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
	}
	if !e.CreatedDate.Valid() {
		return ErrInvalidCreatedDate
	}
	return nil
}

// Completed reports whether grading has already been reconciled.
func (e *Exam) Completed() bool {
	return e.Status == ExamStatusCompleted
}

// Contains reports whether targetID was assigned to the exam.
func (e *Exam) Contains(targetID string) bool {
	for _, id := range e.TargetIDs {
		if id == targetID {
			return true
		}
	}
	return false
}

// ResultFor returns the recorded outcome for targetID, if any.
func (e *Exam) ResultFor(targetID string) (correct bool, ok bool) {
	for _, r := range e.Results {
		if r.TargetID == targetID {
			return r.Correct, true
		}
	}
	return false, false
}

// MergeResults returns the exam's recorded results overlaid with submitted ones.
// Submitted results for ids that are not part of the exam are dropped.
func (e *Exam) MergeResults(submitted []ItemResult) []ItemResult {
	byTarget := make(map[string]bool, len(e.Results)+len(submitted))
	for _, r := range e.Results {
		byTarget[r.TargetID] = r.Correct
	}
	for _, r := range submitted {
		if e.Contains(r.TargetID) {
			byTarget[r.TargetID] = r.Correct
		}
	}

	merged := make([]ItemResult, 0, len(byTarget))
	for _, id := range e.TargetIDs {
		if correct, ok := byTarget[id]; ok {
			merged = append(merged, ItemResult{TargetID: id, Correct: correct})
		}
	}
	return merged
}

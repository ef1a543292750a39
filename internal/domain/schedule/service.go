package schedule

import (
	"errors"

	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
)

// ErrNegativeStreak is returned when a negative streak is supplied.
var ErrNegativeStreak = errors.New("current streak cannot be negative")

// Policy defines the interface for scheduling operations
type Policy interface {
	// Compute returns the next due date, the next streak and whether the item
	// graduates out of review, for an answer graded on base.
	Compute(mode domain.Mode, base calendar.Date, isCorrect bool, currentStreak int) (Result, error)

	// Initial returns the due date of an item registered on registered that has no history.
	Initial(mode domain.Mode, registered calendar.Date) (calendar.Date, error)
}

// defaultPolicy is the standard implementation of the Policy interface
type defaultPolicy struct {
	params *Params
}

// NewDefaultPolicy creates a new policy with default parameters
func NewDefaultPolicy() Policy {
	return &defaultPolicy{params: NewDefaultParams()}
}

// NewPolicyWithParams creates a new policy with custom parameters
func NewPolicyWithParams(params *Params) Policy {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultPolicy{params: params}
}

// Compute implements Policy.Compute
func (p *defaultPolicy) Compute(
	mode domain.Mode,
	base calendar.Date,
	isCorrect bool,
	currentStreak int,
) (Result, error) {
	if currentStreak < 0 {
		return Result{}, ErrNegativeStreak
	}
	return computeNext(mode, base, isCorrect, currentStreak, p.params)
}

// Initial implements Policy.Initial
func (p *defaultPolicy) Initial(mode domain.Mode, registered calendar.Date) (calendar.Date, error) {
	return initialDate(mode, registered, p.params)
}

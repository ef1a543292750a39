package schedule

import (
	"fmt"

	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
)

// Result is the scheduling outcome of one graded answer.
type Result struct {
	NextDate   calendar.Date
	NextStreak int
	Excluded   bool
}

// computeNext maps a graded answer onto the next due date.
//
// The streak is reset by any miss. Reaching params.GraduationStreak excludes the
// item from review regardless of mode. Otherwise the offset depends on mode:
//   - material questions: miss +MaterialIncorrectDays, hit +MaterialCorrectDays
//   - kanji: miss +KanjiIncorrectDays, hit +KanjiCorrectDays[newStreak]
func computeNext(
	mode domain.Mode,
	base calendar.Date,
	isCorrect bool,
	currentStreak int,
	params *Params,
) (Result, error) {
	nextStreak := 0
	if isCorrect {
		nextStreak = currentStreak + 1
	}

	if nextStreak >= params.GraduationStreak {
		return Result{
			NextDate:   calendar.ExcludedSentinel,
			NextStreak: nextStreak,
			Excluded:   true,
		}, nil
	}

	var offset int
	switch mode {
	case domain.ModeMaterialQuestion:
		if isCorrect {
			offset = params.MaterialCorrectDays
		} else {
			offset = params.MaterialIncorrectDays
		}
	case domain.ModeKanji:
		if isCorrect {
			offset = params.kanjiCorrectDays(nextStreak)
		} else {
			offset = params.KanjiIncorrectDays
		}
	default:
		return Result{}, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}

	next, err := base.AddDays(offset)
	if err != nil {
		return Result{}, err
	}

	return Result{NextDate: next, NextStreak: nextStreak}, nil
}

// initialDate returns the due date of an item that has never been graded.
// Material questions are due on registration; kanji after KanjiInitialDays.
func initialDate(mode domain.Mode, registered calendar.Date, params *Params) (calendar.Date, error) {
	switch mode {
	case domain.ModeMaterialQuestion:
		if !registered.Valid() {
			return "", calendar.ErrInvalidDate
		}
		return registered, nil
	case domain.ModeKanji:
		return registered.AddDays(params.KanjiInitialDays)
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}
}

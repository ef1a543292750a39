package schedule

// Params defines all configurable parameters for the scheduling policy
type Params struct {
	// GraduationStreak is the consecutive-correct count at which an item
	// leaves active review.
	GraduationStreak int

	// Material question offsets, in days from the grading date
	MaterialIncorrectDays int
	MaterialCorrectDays   int

	// Kanji offsets, in days from the base date
	KanjiInitialDays   int
	KanjiIncorrectDays int

	// KanjiCorrectDays maps the new streak to its offset
	KanjiCorrectDays map[int]int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the default.
type ParamsConfig struct {
	GraduationStreak int

	MaterialIncorrectDays int
	MaterialCorrectDays   int

	KanjiInitialDays       int
	KanjiIncorrectDays     int
	KanjiFirstCorrectDays  int
	KanjiSecondCorrectDays int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		GraduationStreak: 3,

		MaterialIncorrectDays: 30,
		MaterialCorrectDays:   90,

		KanjiInitialDays:   7,
		KanjiIncorrectDays: 1,
		KanjiCorrectDays: map[int]int{
			1: 30,
			2: 90,
		},
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.GraduationStreak > 0 {
		params.GraduationStreak = config.GraduationStreak
	}

	if config.MaterialIncorrectDays > 0 {
		params.MaterialIncorrectDays = config.MaterialIncorrectDays
	}
	if config.MaterialCorrectDays > 0 {
		params.MaterialCorrectDays = config.MaterialCorrectDays
	}

	if config.KanjiInitialDays > 0 {
		params.KanjiInitialDays = config.KanjiInitialDays
	}
	if config.KanjiIncorrectDays > 0 {
		params.KanjiIncorrectDays = config.KanjiIncorrectDays
	}
	if config.KanjiFirstCorrectDays > 0 {
		params.KanjiCorrectDays[1] = config.KanjiFirstCorrectDays
	}
	if config.KanjiSecondCorrectDays > 0 {
		params.KanjiCorrectDays[2] = config.KanjiSecondCorrectDays
	}

	return params
}

// kanjiCorrectDays returns the offset for a correct kanji answer reaching streak.
// Streaks beyond the configured table reuse the longest configured interval.
func (p *Params) kanjiCorrectDays(streak int) int {
	if days, ok := p.KanjiCorrectDays[streak]; ok {
		return days
	}
	longest := 0
	for s, days := range p.KanjiCorrectDays {
		if s <= streak && days > longest {
			longest = days
		}
	}
	return longest
}

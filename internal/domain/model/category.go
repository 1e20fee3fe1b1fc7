package model

// Category is the derived classification of an event based on which scorer
// verdicts fired.
type Category string

const (
	CategorySecurity    Category = "security"
	CategoryCodeQuality Category = "code_quality"
	CategoryBoth        Category = "both"
	CategoryNormal      Category = "normal"
)

// Categorize derives the event category from the two axis verdicts. A nil
// result means that axis was not scored and is treated as not flagged.
func Categorize(security, quality *ScoreResult) Category {
	secFlagged := security != nil && security.Flagged
	qualFlagged := quality != nil && quality.Flagged

	switch {
	case secFlagged && qualFlagged:
		return CategoryBoth
	case secFlagged:
		return CategorySecurity
	case qualFlagged:
		return CategoryCodeQuality
	default:
		return CategoryNormal
	}
}

// BudgetAxis maps a category onto the axis whose summarization budget it
// consumes and whose prompt persona analyzes it. Events flagged on both axes
// are treated as security: the security analysis is the more urgent of the
// two and its prompt covers the event fully. Unflagged events fall on the
// code-quality axis.
func (c Category) BudgetAxis() Category {
	if c == CategoryBoth || c == CategorySecurity {
		return CategorySecurity
	}
	return CategoryCodeQuality
}

package commit

import (
	"errors"
	"fmt"
)

// Category classifies the kind of change a commit introduces.
type Category string

// The fixed set of commit categories. Any other value is a data-contract
// violation, not a valid category.
const (
	CategoryFeature       Category = "feature"
	CategoryBugFix        Category = "bug_fix"
	CategoryRefactor      Category = "refactor"
	CategoryDocumentation Category = "documentation"
	CategoryTest          Category = "test"
	CategoryChore         Category = "chore"
	CategoryStyle         Category = "style"
	CategorySecurity      Category = "security"
	CategoryPerformance   Category = "performance"
)

// ErrUnknownCategory indicates a category value outside the fixed set.
var ErrUnknownCategory = errors.New("unknown commit category")

var categories = []Category{
	CategoryFeature,
	CategoryBugFix,
	CategoryRefactor,
	CategoryDocumentation,
	CategoryTest,
	CategoryChore,
	CategoryStyle,
	CategorySecurity,
	CategoryPerformance,
}

// Categories returns all valid categories.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryStrings returns all valid categories as strings, in a stable order.
func CategoryStrings() []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

// ParseCategory validates a raw string against the fixed category set.
func ParseCategory(s string) (Category, error) {
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// String returns the category as a string.
func (c Category) String() string { return string(c) }

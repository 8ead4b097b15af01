// Package changelog defines the terminal artifact of the pipeline: a
// structured, human-readable summary of changes over a commit range.
package changelog

import (
	"errors"
	"fmt"
)

// ErrEmptyCommitSet indicates a changelog was requested for zero commits.
// A changelog is only ever produced from a non-empty set of enriched commits.
var ErrEmptyCommitSet = errors.New("changelog requires a non-empty commit set")

// DefaultTemplate is the markdown skeleton used as formatting guidance when
// the caller supplies no output template.
const DefaultTemplate = `
### Added
- New visual theme for the user dashboard.
- Ability to export user data to CSV format. (#45)

### Fixed
- Resolved an issue where the login button was unresponsive on mobile devices. (#42)

### Security
- Patched a cross-site scripting (XSS) vulnerability in the search bar.
`

// Changelog is the structured changelog produced by one pipeline run.
// Immutable; each field is markdown text ready for serialization.
type Changelog struct {
	title       string
	description string
	summary     string
}

// New creates a Changelog.
func New(title, description, summary string) Changelog {
	return Changelog{title: title, description: description, summary: summary}
}

// Title returns the changelog title.
func (c Changelog) Title() string { return c.title }

// Description returns the changelog body.
func (c Changelog) Description() string { return c.description }

// Summary returns the changelog summary.
func (c Changelog) Summary() string { return c.summary }

// Markdown renders the changelog as a single markdown document.
func (c Changelog) Markdown() string {
	return fmt.Sprintf("# %s\n\n%s\n\n## Summary\n\n%s\n", c.title, c.description, c.summary)
}

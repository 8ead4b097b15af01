// Package prompt loads and renders named prompt templates. Templates are
// loaded once, from the embedded defaults or an external YAML file, and are
// read-only afterwards, so a single Store is safely shared across concurrent
// pipeline tasks without locking.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Template names the pipeline depends on.
const (
	EnrichCommit      = "enrich_commit"
	GenerateChangelog = "generate_changelog"
)

// Errors returned by the store.
var (
	// ErrTemplateNotFound indicates the named template is absent from the
	// loaded configuration.
	ErrTemplateNotFound = errors.New("prompt template not found")

	// ErrTemplateMalformed indicates a template is missing its system or
	// user text.
	ErrTemplateMalformed = errors.New("prompt template malformed")

	// ErrMissingVariable indicates a placeholder had no supplied value.
	ErrMissingVariable = errors.New("missing template variable")
)

//go:embed prompts.yml
var defaultPrompts []byte

// placeholderPattern matches {name} tokens in template text.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Template is parameterized system/user text with named placeholders.
type Template struct {
	name   string
	system string
	user   string
}

// Name returns the template name.
func (t Template) Name() string { return t.name }

// System returns the raw system text.
func (t Template) System() string { return t.system }

// User returns the raw user text.
func (t Template) User() string { return t.user }

// Render substitutes named placeholders in both texts. Rendering is pure:
// the same template and variables always yield identical output. A
// placeholder with no corresponding value fails with ErrMissingVariable.
func (t Template) Render(vars map[string]string) (Rendered, error) {
	system, err := substitute(t.system, vars)
	if err != nil {
		return Rendered{}, fmt.Errorf("render %s system text: %w", t.name, err)
	}
	user, err := substitute(t.user, vars)
	if err != nil {
		return Rendered{}, fmt.Errorf("render %s user text: %w", t.name, err)
	}
	return Rendered{system: system, user: user}, nil
}

// substitute replaces each {name} token in a single pass, so substituted
// values are never rescanned for placeholders.
func substitute(text string, vars map[string]string) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return token
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingVariable, missing[0])
	}
	return out, nil
}

// Rendered is the result of substituting variables into a template.
type Rendered struct {
	system string
	user   string
}

// System returns the rendered system text.
func (r Rendered) System() string { return r.system }

// User returns the rendered user text.
func (r Rendered) User() string { return r.user }

// Store holds named prompt templates.
type Store struct {
	templates map[string]Template
}

// NewStore loads the embedded default templates.
func NewStore() (*Store, error) {
	return NewStoreFromBytes(defaultPrompts)
}

// NewStoreFromFile loads templates from a YAML file on disk.
func NewStoreFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	return NewStoreFromBytes(data)
}

// NewStoreFromBytes parses templates from YAML content. The document maps
// template name to {system, user}; unknown keys inside a template are
// tolerated.
func NewStoreFromBytes(data []byte) (*Store, error) {
	var raw map[string]struct {
		System string `yaml:"system"`
		User   string `yaml:"user"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	templates := make(map[string]Template, len(raw))
	for name, entry := range raw {
		templates[name] = Template{name: name, system: entry.System, user: entry.User}
	}
	return &Store{templates: templates}, nil
}

// Get returns the named template. It fails with ErrTemplateNotFound when the
// name is absent, and with ErrTemplateMalformed when the system or user text
// is missing.
func (s *Store) Get(name string) (Template, error) {
	t, ok := s.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if t.system == "" || t.user == "" {
		return Template{}, fmt.Errorf("%w: %s requires system and user text", ErrTemplateMalformed, name)
	}
	return t, nil
}

// Names returns all loaded template names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package overrides

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/tapsight/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTable []byte

// Entry is one canonical identity
type Entry struct {
	Key            string   `yaml:"key"`
	Match          []string `yaml:"match"`
	Name           string   `yaml:"name"`
	Category       string   `yaml:"category"`
	ReferenceImage string   `yaml:"reference_image"`
	WeatherFacts   string   `yaml:"weather_facts,omitempty"`
	// Hint is appended to the recognition prompt to steer the model toward this entry
	Hint string `yaml:"hint,omitempty"`
}

// Table is an ordered list of entries. The first entry whose match list
// contains a case-insensitive substring of the recognized name wins.
type Table struct {
	Entries []Entry `yaml:"entries"`
}

// Default returns the built-in table
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded override table: %v", err))
	}
	return t
}

// Load reads a table from a YAML file
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read override table: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML table
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse override table: %w", err)
	}

	seen := make(map[string]bool, len(t.Entries))
	for i, e := range t.Entries {
		if e.Key == "" || e.Name == "" {
			return nil, fmt.Errorf("override entry %d: key and name are required", i)
		}
		if seen[e.Key] {
			return nil, fmt.Errorf("override entry %d: duplicate key %q", i, e.Key)
		}
		seen[e.Key] = true

		var matchers []string
		for _, m := range e.Match {
			if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
				matchers = append(matchers, m)
			}
		}
		if len(matchers) == 0 {
			return nil, fmt.Errorf("override entry %q: at least one match string is required", e.Key)
		}
		t.Entries[i].Match = matchers
	}

	return &t, nil
}

// Lookup returns the first entry matching name
func (t *Table) Lookup(name string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	lower := strings.ToLower(name)
	if lower == "" {
		return Entry{}, false
	}
	for _, e := range t.Entries {
		for _, m := range e.Match {
			if strings.Contains(lower, m) {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// Apply returns r with the matching entry's canonical fields written over it.
// Without a match r is returned unchanged.
func (t *Table) Apply(r models.RecognitionResult) (models.RecognitionResult, bool) {
	e, ok := t.Lookup(r.Name)
	if !ok {
		return r, false
	}

	r.Name = e.Name
	if e.Category != "" {
		r.Category = e.Category
	}
	r.ReferenceImage = e.ReferenceImage
	r.WeatherFacts = e.WeatherFacts
	r.Override = e.Key
	return r, true
}

// Hints returns the prompt hints of all entries, in priority order
func (t *Table) Hints() []string {
	if t == nil {
		return nil
	}
	var hints []string
	for _, e := range t.Entries {
		if e.Hint != "" {
			hints = append(hints, e.Hint)
		}
	}
	return hints
}

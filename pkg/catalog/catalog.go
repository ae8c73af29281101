// Package catalog provides the embedded question catalogs and questionnaire modules
package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// Entry is one canonical question text and its question number
type Entry struct {
	Number int    `yaml:"number" json:"number"`
	Text   string `yaml:"text" json:"text"`
}

// SpecialPhrase maps free text that is not a catalog question onto a question number
type SpecialPhrase struct {
	Phrase string `yaml:"phrase" json:"phrase"`
	Number int    `yaml:"number" json:"number"`
}

// QuestionCatalog is an immutable ordered list of canonical questions
type QuestionCatalog struct {
	id       string
	title    string
	entries  []Entry
	special  []SpecialPhrase
	byText   map[string]int // exact text -> index into entries
	byFolded map[string]int // case-folded text -> index into entries
}

// NewQuestionCatalog builds a catalog. When a text occurs more than once the
// first entry wins.
func NewQuestionCatalog(id, title string, entries []Entry, special []SpecialPhrase) *QuestionCatalog {
	c := &QuestionCatalog{
		id:       id,
		title:    title,
		entries:  append([]Entry(nil), entries...),
		special:  append([]SpecialPhrase(nil), special...),
		byText:   make(map[string]int, len(entries)),
		byFolded: make(map[string]int, len(entries)),
	}

	for i, entry := range c.entries {
		text := strings.TrimSpace(entry.Text)
		if _, exists := c.byText[text]; !exists {
			c.byText[text] = i
		}
		folded := Fold(text)
		if _, exists := c.byFolded[folded]; !exists {
			c.byFolded[folded] = i
		}
	}
	return c
}

// Fold returns the case-folded form of s used for case-insensitive comparison
func Fold(s string) string {
	// Casers keep state, so one is created per call.
	return cases.Fold().String(s)
}

func (c *QuestionCatalog) ID() string    { return c.id }
func (c *QuestionCatalog) Title() string { return c.title }
func (c *QuestionCatalog) Len() int      { return len(c.entries) }

// Entries returns the entries in catalog order
func (c *QuestionCatalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// SpecialPhrases returns the phrase overrides in declaration order
func (c *QuestionCatalog) SpecialPhrases() []SpecialPhrase {
	return append([]SpecialPhrase(nil), c.special...)
}

// Exact looks up a question by its exact (trimmed) text
func (c *QuestionCatalog) Exact(text string) (Entry, bool) {
	i, ok := c.byText[strings.TrimSpace(text)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Folded looks up a question ignoring case
func (c *QuestionCatalog) Folded(text string) (Entry, bool) {
	i, ok := c.byFolded[Fold(strings.TrimSpace(text))]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Number returns the entry for a question number
func (c *QuestionCatalog) Number(number int) (Entry, bool) {
	for _, entry := range c.entries {
		if entry.Number == number {
			return entry, true
		}
	}
	return Entry{}, false
}

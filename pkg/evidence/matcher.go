package evidence

import (
	"strings"

	"go.uber.org/zap"

	"github.com/pramodksahoo/audit-reporter/pkg/catalog"
)

// MatchKind records which rule produced a match
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchSpecialPhrase
	MatchExact
	MatchCaseInsensitive
	MatchSubstring
)

func (k MatchKind) String() string {
	switch k {
	case MatchSpecialPhrase:
		return "special_phrase"
	case MatchExact:
		return "exact"
	case MatchCaseInsensitive:
		return "case_insensitive"
	case MatchSubstring:
		return "substring"
	default:
		return "none"
	}
}

// Match is the result of resolving free text to a catalog question
type Match struct {
	Number    int
	Canonical string // catalog text, or the special phrase that fired
	Kind      MatchKind
}

// Matcher resolves worksheet text to question numbers
type Matcher struct {
	catalog *catalog.QuestionCatalog
	logger  *zap.Logger
}

// NewMatcher creates a matcher over c. A nil logger discards output.
func NewMatcher(c *catalog.QuestionCatalog, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{catalog: c, logger: logger}
}

// Match tries, in order: special phrases, exact text, case-insensitive text,
// and a case-insensitive substring match in either direction. The first
// catalog entry that satisfies a rule wins.
func (m *Matcher) Match(text string) (Match, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Match{}, false
	}

	for _, sp := range m.catalog.SpecialPhrases() {
		if strings.Contains(text, sp.Phrase) {
			return Match{Number: sp.Number, Canonical: sp.Phrase, Kind: MatchSpecialPhrase}, true
		}
	}

	if entry, ok := m.catalog.Exact(text); ok {
		return Match{Number: entry.Number, Canonical: entry.Text, Kind: MatchExact}, true
	}

	if entry, ok := m.catalog.Folded(text); ok {
		return Match{Number: entry.Number, Canonical: entry.Text, Kind: MatchCaseInsensitive}, true
	}

	folded := catalog.Fold(text)
	for _, entry := range m.catalog.Entries() {
		canonical := catalog.Fold(strings.TrimSpace(entry.Text))
		if canonical == "" {
			continue
		}
		if strings.Contains(canonical, folded) || strings.Contains(folded, canonical) {
			m.logger.Debug("partial question match",
				zap.String("text", text),
				zap.String("canonical", entry.Text),
				zap.Int("question", entry.Number))
			return Match{Number: entry.Number, Canonical: entry.Text, Kind: MatchSubstring}, true
		}
	}

	return Match{}, false
}

// Question returns the catalog entry for a question number
func (m *Matcher) Question(number int) (catalog.Entry, bool) {
	return m.catalog.Number(number)
}

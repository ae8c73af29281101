package models

import (
	"fmt"
	"strconv"
)

// KeyKind tags the shape of an evidence filename
type KeyKind int

const (
	// KeyUnparsed marks a filename that follows no known convention
	KeyUnparsed KeyKind = iota
	// KeyBare is a filename made only of the question number, e.g. "7.jpg"
	KeyBare
	// KeyNumbered is "<n>_<m>..." e.g. "12_3_description.jpg"
	KeyNumbered
	// KeyLettered is "<n>_<L>..." e.g. "5_Bphoto.png"
	KeyLettered
)

// Sentinel values reported by unparsed keys so they order after every real key
const (
	SentinelBase   = 999
	SentinelSub    = 999
	SentinelLetter = "ZZZ"
)

func (k KeyKind) String() string {
	switch k {
	case KeyBare:
		return "bare"
	case KeyNumbered:
		return "numbered"
	case KeyLettered:
		return "lettered"
	default:
		return "unparsed"
	}
}

// ImageKey is the structured form of an evidence filename
type ImageKey struct {
	Kind   KeyKind `json:"kind"`
	Base   int     `json:"base"`             // question number
	Sub    int     `json:"sub,omitempty"`    // numeric sub-key, KeyNumbered only
	Letter string  `json:"letter,omitempty"` // upper-case letter, KeyLettered only
	Label  string  `json:"label,omitempty"`  // free text after the sub-key
}

// BareKey builds the key for a filename that is only a question number
func BareKey(base int) ImageKey {
	return ImageKey{Kind: KeyBare, Base: base}
}

// NumberedKey builds a "<base>_<sub><label>" key
func NumberedKey(base, sub int, label string) ImageKey {
	return ImageKey{Kind: KeyNumbered, Base: base, Sub: sub, Label: label}
}

// LetteredKey builds a "<base>_<letter><label>" key
func LetteredKey(base int, letter, label string) ImageKey {
	return ImageKey{Kind: KeyLettered, Base: base, Letter: letter, Label: label}
}

// UnparsedKey builds the sentinel key for a filename with no usable structure
func UnparsedKey(label string) ImageKey {
	return ImageKey{
		Kind:   KeyUnparsed,
		Base:   SentinelBase,
		Sub:    SentinelSub,
		Letter: SentinelLetter,
		Label:  label,
	}
}

// Parsed reports whether the key came from a recognised filename
func (k ImageKey) Parsed() bool {
	return k.Kind != KeyUnparsed
}

// Prefix identifies the annexure family an image belongs to.
// Images sharing a prefix are rendered under one annexure number; every
// unparsed image falls in the single sentinel family.
func (k ImageKey) Prefix() string {
	switch k.Kind {
	case KeyBare:
		return strconv.Itoa(k.Base)
	case KeyNumbered:
		return fmt.Sprintf("%d_%d", k.Base, k.Sub)
	case KeyLettered:
		return fmt.Sprintf("%d_%s", k.Base, k.Letter)
	default:
		return fmt.Sprintf("%d_%d", SentinelBase, SentinelSub)
	}
}

// Display is the prefix as shown in annexure headings: "12.3", "5_B", "7"
func (k ImageKey) Display() string {
	switch k.Kind {
	case KeyBare:
		return strconv.Itoa(k.Base)
	case KeyNumbered:
		return fmt.Sprintf("%d.%d", k.Base, k.Sub)
	case KeyLettered:
		return fmt.Sprintf("%d_%s", k.Base, k.Letter)
	default:
		return k.Label
	}
}

// EvidenceImage is one image file extracted from an uploaded archive
type EvidenceImage struct {
	Filename   string   `json:"filename"`    // name as it appeared in the archive, without directories
	Path       string   `json:"path"`        // location inside the request's temp directory
	Key        ImageKey `json:"key"`         // dual-key parse of Filename
	BaseNumber int      `json:"base_number"` // question number used for grouping
	HasBase    bool     `json:"has_base"`    // false when no question number could be read
}

// Anchor is a 1-based worksheet cell coordinate
type Anchor struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ShiftRight returns the anchor moved n columns to the right
func (a Anchor) ShiftRight(n int) Anchor {
	return Anchor{Row: a.Row, Col: a.Col + n}
}

func (a Anchor) String() string {
	return fmt.Sprintf("R%dC%d", a.Row, a.Col)
}

// MatchedQuestionGroup holds the ordered evidence images for one question number
type MatchedQuestionGroup struct {
	Base   int             `json:"base"`
	Images []EvidenceImage `json:"images"`
}

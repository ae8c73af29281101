package evidence

import (
	"cmp"
	"slices"
	"strings"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

// kindRank orders keys within one question number: the bare image first,
// then numeric sub-keys, then letters. Unparsed keys never share a rank
// with parsed ones.
func kindRank(kind models.KeyKind) int {
	switch kind {
	case models.KeyBare:
		return 0
	case models.KeyNumbered:
		return 1
	case models.KeyLettered:
		return 2
	default:
		return 3
	}
}

// CompareImages orders evidence images: parsed before unparsed, then by
// question number, kind, numeric sub-key, letter, label and finally filename.
func CompareImages(a, b models.EvidenceImage) int {
	ka, kb := a.Key, b.Key
	if ka.Parsed() != kb.Parsed() {
		if ka.Parsed() {
			return -1
		}
		return 1
	}
	return cmp.Or(
		cmp.Compare(ka.Base, kb.Base),
		cmp.Compare(kindRank(ka.Kind), kindRank(kb.Kind)),
		cmp.Compare(ka.Sub, kb.Sub),
		strings.Compare(ka.Letter, kb.Letter),
		strings.Compare(ka.Label, kb.Label),
		strings.Compare(a.Filename, b.Filename),
	)
}

// SortImages sorts images in place with CompareImages
func SortImages(images []models.EvidenceImage) {
	slices.SortStableFunc(images, CompareImages)
}

// GroupByBase groups images by question number. Groups come back in
// ascending question order with their images sorted; images without a
// question number are returned separately.
func GroupByBase(images []models.EvidenceImage) (groups []models.MatchedQuestionGroup, unmatched []models.EvidenceImage) {
	byBase := make(map[int][]models.EvidenceImage)
	for _, img := range images {
		if !img.HasBase {
			unmatched = append(unmatched, img)
			continue
		}
		byBase[img.BaseNumber] = append(byBase[img.BaseNumber], img)
	}

	bases := make([]int, 0, len(byBase))
	for base := range byBase {
		bases = append(bases, base)
	}
	slices.Sort(bases)

	for _, base := range bases {
		members := byBase[base]
		SortImages(members)
		groups = append(groups, models.MatchedQuestionGroup{Base: base, Images: members})
	}
	return groups, unmatched
}

// GroupIndex maps question numbers to their group for placement lookups
type GroupIndex map[int]*models.MatchedQuestionGroup

// IndexGroups builds a GroupIndex over groups
func IndexGroups(groups []models.MatchedQuestionGroup) GroupIndex {
	index := make(GroupIndex, len(groups))
	for i := range groups {
		index[groups[i].Base] = &groups[i]
	}
	return index
}

// SplitByKind separates numbered annexure images (n_m, plus bare and unparsed
// names) from lettered location images (n_L). Both results are sorted.
func SplitByKind(images []models.EvidenceImage) (numbered, lettered []models.EvidenceImage) {
	for _, img := range images {
		if img.Key.Kind == models.KeyLettered {
			lettered = append(lettered, img)
		} else {
			numbered = append(numbered, img)
		}
	}
	SortImages(numbered)
	SortImages(lettered)
	return numbered, lettered
}

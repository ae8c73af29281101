package evidence

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

func imagesFor(names ...string) []models.EvidenceImage {
	images := make([]models.EvidenceImage, 0, len(names))
	for _, name := range names {
		images = append(images, NewImage(name, "/evidence/"+name))
	}
	return images
}

func filenames(images []models.EvidenceImage) []string {
	names := make([]string, 0, len(images))
	for _, img := range images {
		names = append(names, img.Filename)
	}
	return names
}

func TestGroupByBaseScenario(t *testing.T) {
	groups, unmatched := GroupByBase(imagesFor("2_2.jpg", "1_Bnote.png", "2_1.jpg", "1.jpg"))
	require.Empty(t, unmatched)
	require.Len(t, groups, 2)

	assert.Equal(t, 1, groups[0].Base)
	assert.Equal(t, []string{"1.jpg", "1_Bnote.png"}, filenames(groups[0].Images))
	assert.Equal(t, models.KeyBare, groups[0].Images[0].Key.Kind)
	assert.Equal(t, "B", groups[0].Images[1].Key.Letter)

	assert.Equal(t, 2, groups[1].Base)
	assert.Equal(t, []string{"2_1.jpg", "2_2.jpg"}, filenames(groups[1].Images))
}

func TestGroupByBaseUnmatched(t *testing.T) {
	groups, unmatched := GroupByBase(imagesFor("logo.png", "3_1.png", "7-wiring.jpg"))
	require.Len(t, groups, 2)
	assert.Equal(t, []int{3, 7}, []int{groups[0].Base, groups[1].Base})
	assert.Equal(t, []string{"logo.png"}, filenames(unmatched))
}

func TestSortImagesOrdering(t *testing.T) {
	expected := []string{
		"1.jpg",
		"1_2.jpg",
		"1_10.jpg",
		"1_A.jpg",
		"1_Cdoor.jpg",
		"2_1 alpha.jpg",
		"2_1 beta.jpg",
		"10_1.jpg",
		"1000_1.jpg",
		"IMG_0001.jpg",
		"notes.png",
	}

	shuffled := imagesFor(expected...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	SortImages(shuffled)
	if diff := cmp.Diff(expected, filenames(shuffled)); diff != "" {
		t.Errorf("sort order mismatch (-want +got):\n%s", diff)
	}
}

func TestUnparsedSortsLast(t *testing.T) {
	images := imagesFor("zzz.png", "999_1.png", "aaa.png", "5_B.png")
	SortImages(images)

	assert.True(t, images[0].Key.Parsed())
	assert.True(t, images[1].Key.Parsed())
	assert.False(t, images[2].Key.Parsed())
	assert.False(t, images[3].Key.Parsed())
}

func TestEachImageInOneGroup(t *testing.T) {
	images := imagesFor("1.jpg", "1_1.jpg", "2_A.jpg", "3-x.jpg", "3_2.jpg", "none.jpg")
	groups, unmatched := GroupByBase(images)

	seen := make(map[string]int)
	for _, g := range groups {
		for _, img := range g.Images {
			seen[img.Filename]++
			assert.Equal(t, g.Base, img.BaseNumber)
		}
	}
	for _, img := range unmatched {
		seen[img.Filename]++
	}
	assert.Len(t, seen, len(images))
	for name, count := range seen {
		assert.Equal(t, 1, count, name)
	}
}

func TestSplitByKind(t *testing.T) {
	numbered, lettered := SplitByKind(imagesFor("2_B.jpg", "1_1.jpg", "1_A.jpg", "misc.jpg", "1.jpg"))
	assert.Equal(t, []string{"1.jpg", "1_1.jpg", "misc.jpg"}, filenames(numbered))
	assert.Equal(t, []string{"1_A.jpg", "2_B.jpg"}, filenames(lettered))
}

func TestIndexGroups(t *testing.T) {
	groups, _ := GroupByBase(imagesFor("4_1.jpg", "8.jpg"))
	index := IndexGroups(groups)
	require.Contains(t, index, 8)
	assert.Equal(t, "8.jpg", index[8].Images[0].Filename)
	assert.NotContains(t, index, 5)
}

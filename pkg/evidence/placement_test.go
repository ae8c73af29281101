package evidence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

const pocStart = 7 // column G

func fixedMeasure(size Size, failing ...string) MeasureFunc {
	fail := make(map[string]bool, len(failing))
	for _, name := range failing {
		fail["/evidence/"+name] = true
	}
	return func(path string) (Size, error) {
		if fail[path] {
			return Size{}, errors.New("corrupt image")
		}
		return size, nil
	}
}

func TestScaleToHeight(t *testing.T) {
	size, err := ScaleToHeight(Size{Width: 1920, Height: 1080}, SheetImageHeight)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 44, Height: 25}, size)

	size, err = ScaleToHeight(Size{Width: 300, Height: 600}, AnnexureImageHeight)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 220, Height: 440}, size)

	_, err = ScaleToHeight(Size{Width: 10}, 25)
	assert.ErrorIs(t, err, ErrZeroHeight)
}

func TestSheetPlannerPlacesAtMostThreePerRow(t *testing.T) {
	groups, _ := GroupByBase(imagesFor("1_1.jpg", "1_2.jpg", "1_3.jpg", "1_4.jpg", "1_5.jpg", "2.jpg"))
	planner := NewSheetPlanner(NewMatcher(testBranchCatalog(), nil), fixedMeasure(Size{Width: 100, Height: 50}), pocStart, nil)

	plan := planner.Plan([]RowQuestion{
		{Row: 2, Text: "Do employees are using strong passwords?"},
		{Row: 3, Text: "Do you mandate periodical password changes?"},
	}, groups)

	require.Len(t, plan.Placements, 4)

	row2 := plan.Placements[:3]
	assert.Equal(t, models.Anchor{Row: 2, Col: 8}, row2[0].Anchor)
	assert.Equal(t, models.Anchor{Row: 2, Col: 9}, row2[1].Anchor)
	assert.Equal(t, models.Anchor{Row: 2, Col: 7}, row2[2].Anchor)
	assert.Equal(t, []string{"1_1.jpg", "1_2.jpg", "1_3.jpg"}, []string{
		row2[0].Image.Filename, row2[1].Image.Filename, row2[2].Image.Filename,
	})
	for _, p := range row2 {
		assert.Equal(t, Size{Width: 50, Height: 25}, p.Size)
		assert.Equal(t, 1, p.Question)
	}

	assert.Equal(t, models.Anchor{Row: 3, Col: 8}, plan.Placements[3].Anchor)
	assert.Equal(t, "2.jpg", plan.Placements[3].Image.Filename)
	assert.Equal(t, Size{Width: 100, Height: 50}, plan.Placements[3].Source)

	require.Len(t, plan.Unused, 2)
	assert.Equal(t, "1_4.jpg", plan.Unused[0].Image.Filename)
}

func TestSheetPlannerRepeatedQuestion(t *testing.T) {
	tests := []struct {
		name       string
		images     []string
		failing    []string
		rows       []int
		perRow     []string
		wantUnused []string
		wantSkip   []string
	}{
		{
			name:       "every row gets the first three",
			images:     []string{"1_1.jpg", "1_2.jpg", "1_3.jpg", "1_4.jpg", "1_5.jpg"},
			rows:       []int{5, 9},
			perRow:     []string{"1_1.jpg", "1_2.jpg", "1_3.jpg"},
			wantUnused: []string{"1_4.jpg", "1_5.jpg"},
		},
		{
			name:   "fewer than three images repeat too",
			images: []string{"1_1.jpg", "1_2.jpg"},
			rows:   []int{4, 6, 8},
			perRow: []string{"1_1.jpg", "1_2.jpg"},
		},
		{
			name:     "unreadable image is reported once",
			images:   []string{"1_1.jpg", "1_2.jpg", "1_3.jpg"},
			failing:  []string{"1_2.jpg"},
			rows:     []int{2, 3},
			perRow:   []string{"1_1.jpg", "1_3.jpg"},
			wantSkip: []string{"1_2.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, _ := GroupByBase(imagesFor(tt.images...))
			planner := NewSheetPlanner(NewMatcher(testBranchCatalog(), nil),
				fixedMeasure(Size{Width: 10, Height: 10}, tt.failing...), pocStart, nil)

			var rows []RowQuestion
			for _, r := range tt.rows {
				rows = append(rows, RowQuestion{Row: r, Text: "do employees are using strong passwords?"})
			}
			plan := planner.Plan(rows, groups)

			require.Len(t, plan.Placements, len(tt.rows)*len(tt.perRow))
			for i, r := range tt.rows {
				got := plan.Placements[i*len(tt.perRow) : (i+1)*len(tt.perRow)]
				var names []string
				for _, p := range got {
					assert.Equal(t, r, p.Anchor.Row)
					names = append(names, p.Image.Filename)
				}
				assert.Equal(t, tt.perRow, names, "row %d", r)
			}

			var unused []string
			for _, u := range plan.Unused {
				unused = append(unused, u.Image.Filename)
				assert.Equal(t, "more than 3 images for question 1", u.Reason)
			}
			assert.Equal(t, tt.wantUnused, unused)

			var skipped []string
			for _, s := range plan.Skipped {
				skipped = append(skipped, s.Image.Filename)
			}
			assert.Equal(t, tt.wantSkip, skipped)
		})
	}
}

func TestSheetPlannerUnusedGroups(t *testing.T) {
	groups, _ := GroupByBase(imagesFor("2_1.jpg", "40.jpg"))
	planner := NewSheetPlanner(NewMatcher(testBranchCatalog(), nil), fixedMeasure(Size{Width: 1, Height: 1}), pocStart, nil)

	plan := planner.Plan([]RowQuestion{{Row: 2, Text: "Do employees are using strong passwords?"}}, groups)

	assert.Empty(t, plan.Placements)
	require.Len(t, plan.Unused, 2)
	assert.Equal(t, "question 2 has no matching row", plan.Unused[0].Reason)
	assert.Equal(t, "question 40 is not in the catalog", plan.Unused[1].Reason)
}

func TestSheetPlannerSkipsFailingImages(t *testing.T) {
	groups, _ := GroupByBase(imagesFor("1_1.jpg", "1_2.jpg", "1_3.jpg"))
	planner := NewSheetPlanner(NewMatcher(testBranchCatalog(), nil),
		fixedMeasure(Size{Width: 40, Height: 20}, "1_2.jpg"), pocStart, nil)

	plan := planner.Plan([]RowQuestion{{Row: 2, Text: "Do employees are using strong passwords?"}}, groups)

	require.Len(t, plan.Placements, 2)
	assert.Equal(t, models.Anchor{Row: 2, Col: 8}, plan.Placements[0].Anchor)
	assert.Equal(t, models.Anchor{Row: 2, Col: 7}, plan.Placements[1].Anchor)
	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, "1_2.jpg", plan.Skipped[0].Image.Filename)
}

func TestSheetPlannerUnmatchedRows(t *testing.T) {
	planner := NewSheetPlanner(NewMatcher(testBranchCatalog(), nil), fixedMeasure(Size{Width: 1, Height: 1}), pocStart, nil)
	plan := planner.Plan([]RowQuestion{{Row: 1, Text: "Questionnaire"}, {Row: 2, Text: ""}}, nil)

	assert.Empty(t, plan.Placements)
	require.Len(t, plan.UnmatchedRows, 1)
	assert.Equal(t, 1, plan.UnmatchedRows[0].Row)
}

func TestPlanAnnexures(t *testing.T) {
	images := imagesFor("2_1_vault.jpg", "1_1.jpg", "1_1_rack.jpg", "1_2.jpg", "3_A.jpg", "3_A_door.jpg")
	entries, skipped := PlanAnnexures(images, fixedMeasure(Size{Width: 800, Height: 400}), nil)
	require.Empty(t, skipped)
	require.Len(t, entries, 6)

	expected := []struct {
		number  int
		isNew   bool
		heading string
	}{
		{1, true, "Annexure 1 (1.1)"},
		{1, false, "rack"},
		{2, true, "Annexure 2 (1.2)"},
		{3, true, "Annexure 3 (2.1 vault)"},
		{4, true, "Annexure 4 (3_A)"},
		{4, false, "door"},
	}
	for i, want := range expected {
		assert.Equal(t, want.number, entries[i].Number, "entry %d", i)
		assert.Equal(t, want.isNew, entries[i].NewAnnexure, "entry %d", i)
		assert.Equal(t, want.heading, entries[i].Heading, "entry %d", i)
		assert.Equal(t, Size{Width: 880, Height: 440}, entries[i].Size)
	}
}

func TestPlanAnnexuresContinuationWithoutLabel(t *testing.T) {
	images := imagesFor("4_B.png", "4_B.jpg")
	entries, _ := PlanAnnexures(images, fixedMeasure(Size{Width: 10, Height: 10}), nil)
	require.Len(t, entries, 2)
	assert.Equal(t, "Annexure 1 (4_B)", entries[0].Heading)
	assert.Equal(t, "B", entries[1].Heading)
}

func TestPlanAnnexuresUnparsedShareOneAnnexure(t *testing.T) {
	tests := []struct {
		name     string
		images   []string
		headings []string
		numbers  []int
	}{
		{
			name:     "only unparsed",
			images:   []string{"scan.png", "photo.png", "misc.png"},
			headings: []string{"Annexure 1 (misc)", "photo", "scan"},
			numbers:  []int{1, 1, 1},
		},
		{
			name:     "after parsed images",
			images:   []string{"scan.png", "1_1.png", "IMG_0001.jpg"},
			headings: []string{"Annexure 1 (1.1)", "Annexure 2 (IMG_0001)", "scan"},
			numbers:  []int{1, 2, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, skipped := PlanAnnexures(imagesFor(tt.images...), fixedMeasure(Size{Width: 10, Height: 10}), nil)
			require.Empty(t, skipped)
			require.Len(t, entries, len(tt.headings))

			for i, entry := range entries {
				assert.Equal(t, tt.headings[i], entry.Heading, "entry %d", i)
				assert.Equal(t, tt.numbers[i], entry.Number, "entry %d", i)
			}
		})
	}
}

func TestPlanAnnexuresSkipsUnreadableImages(t *testing.T) {
	images := imagesFor("1_1.jpg", "1_2.jpg")
	entries, skipped := PlanAnnexures(images, fixedMeasure(Size{Width: 10, Height: 10}, "1_1.jpg"), nil)

	require.Len(t, entries, 1)
	require.Len(t, skipped, 1)
	assert.Equal(t, "Annexure 1 (1.2)", entries[0].Heading)
}

func TestEMU(t *testing.T) {
	assert.Equal(t, int64(4191000), EMU(AnnexureImageHeight))
}

package main

import (
	"strings"
	"testing"

	"github.com/kokistudios/drill/internal/catalog"
	"github.com/kokistudios/drill/internal/picker"
)

func TestPickSheetGroupsInterleavedCategories(t *testing.T) {
	// Balanced draw order alternates categories.
	picked := []catalog.QuestionRecord{
		{ID: "Chem_P1_2020", Category: "Chem", Subcategory: "P1", Label: "2020"},
		{ID: "Bio_P1_2019", Category: "Bio", Subcategory: "P1", Label: "2019"},
		{ID: "Chem_P1_2021", Category: "Chem", Subcategory: "P1", Label: "2021"},
	}

	sheet := pickSheet(picked, picker.ModeBalanced)

	if got := strings.Count(sheet, "## Chem"); got != 1 {
		t.Errorf("Chem header count = %d, want 1:\n%s", got, sheet)
	}
	if got := strings.Count(sheet, "## Bio"); got != 1 {
		t.Errorf("Bio header count = %d, want 1:\n%s", got, sheet)
	}
	if strings.Index(sheet, "## Chem") > strings.Index(sheet, "## Bio") {
		t.Error("category sections should follow draw order (Chem before Bio)")
	}
	for _, id := range []string{"Chem_P1_2020", "Chem_P1_2021", "Bio_P1_2019"} {
		if !strings.Contains(sheet, id) {
			t.Errorf("sheet missing question %s", id)
		}
	}
}

func TestPickSheetEmpty(t *testing.T) {
	sheet := pickSheet(nil, picker.ModeRandom)
	if !strings.Contains(sheet, "0 questions") {
		t.Errorf("empty sheet should report 0 questions, got:\n%s", sheet)
	}
	if strings.Contains(sheet, "##") {
		t.Errorf("empty sheet should have no category sections, got:\n%s", sheet)
	}
}

package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func intPtr(v int) *int { return &v }

func stationItems(inside, outside int) []EquipmentItem {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	items := make([]EquipmentItem, 0, inside+outside)
	for i := 0; i < inside; i++ {
		items = append(items, EquipmentItem{ID: uuid.New(), Category: CategoryStationsInside, SortOrder: i, CreatedAt: base})
	}
	for i := 0; i < outside; i++ {
		items = append(items, EquipmentItem{ID: uuid.New(), Category: CategoryStationsOutside, SortOrder: inside + i, CreatedAt: base})
	}
	return items
}

func TestClassifyMarksItemsPastBaseline(t *testing.T) {
	cases := []struct {
		name         string
		inside       int
		outside      int
		baseline     Baseline
		wantNew      int
		wantInsideNw int
	}{
		{"scenario 2/1 with 3/2", 3, 2, Baseline{StationsInside: 2, StationsOutside: 1}, 2, 1},
		{"no baseline", 2, 2, Baseline{}, 4, 2},
		{"fewer than expected", 1, 0, Baseline{StationsInside: 4, StationsOutside: 2}, 0, 0},
		{"exact", 4, 2, Baseline{StationsInside: 4, StationsOutside: 2}, 0, 0},
		{"outside only excess", 0, 5, Baseline{StationsInside: 3, StationsOutside: 2}, 3, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := stationItems(tc.inside, tc.outside)
			got := Classify(items, tc.baseline)

			if len(got.NewIDs) != tc.wantNew {
				t.Fatalf("expected %d new, got %d", tc.wantNew, len(got.NewIDs))
			}
			excess := ExcessCount(got.Actual, tc.baseline, CategoryStationsInside, CategoryStationsOutside)
			if excess != tc.wantNew {
				t.Fatalf("expected clamped excess %d, got %d", tc.wantNew, excess)
			}

			insideNew := 0
			for _, id := range got.NewIDs {
				for _, item := range items {
					if item.ID == id && item.Category == CategoryStationsInside {
						insideNew++
					}
				}
			}
			if insideNew != tc.wantInsideNw {
				t.Fatalf("expected %d inside new, got %d", tc.wantInsideNw, insideNew)
			}
		})
	}
}

func TestClassifyFlagsTrailingItemsPerCategory(t *testing.T) {
	items := stationItems(3, 2)
	got := Classify(items, Baseline{StationsInside: 2, StationsOutside: 1})

	// inside #3 is items[2], outside #2 is items[4]
	want := map[uuid.UUID]bool{items[2].ID: true, items[4].ID: true}
	if len(got.NewIDs) != len(want) {
		t.Fatalf("expected %d new ids, got %d", len(want), len(got.NewIDs))
	}
	for _, id := range got.NewIDs {
		if !want[id] {
			t.Fatalf("unexpected new id %s", id)
		}
	}
}

func TestClassifyTieBreaksOnCreatedAtThenID(t *testing.T) {
	early := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	late := early.Add(time.Minute)
	first := EquipmentItem{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Category: CategoryMonitorsLight, CreatedAt: early}
	second := EquipmentItem{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Category: CategoryMonitorsLight, CreatedAt: late}

	got := Classify([]EquipmentItem{second, first}, Baseline{MonitorsLight: 1})
	if len(got.NewIDs) != 1 || got.NewIDs[0] != second.ID {
		t.Fatalf("expected later item to be new, got %v", got.NewIDs)
	}
}

func TestBaselineApplyOverride(t *testing.T) {
	b := Baseline{StationsInside: 2, StationsOutside: 1, MonitorsLight: 3}
	o := BaselineOverride{StationsOutside: intPtr(4), MonitorsBox: intPtr(-2)}

	got := b.Apply(o)
	if got.StationsInside != 2 || got.StationsOutside != 4 || got.MonitorsLight != 3 || got.MonitorsBox != 0 {
		t.Fatalf("unexpected baseline %+v", got)
	}
	groups := o.Groups()
	if len(groups) != 2 {
		t.Fatalf("expected both groups, got %v", groups)
	}
	if !(BaselineOverride{}).IsZero() {
		t.Fatal("empty override must be zero")
	}
}

func TestRatchet(t *testing.T) {
	b := Baseline{StationsInside: 2, StationsOutside: 1, MonitorsLight: 5}

	got, changed := Ratchet(b, GroupBaitStations, map[Category]int{CategoryStationsInside: 3, CategoryStationsOutside: 2})
	if !changed || got.StationsInside != 3 || got.StationsOutside != 2 || got.MonitorsLight != 5 {
		t.Fatalf("unexpected ratchet result %+v changed=%v", got, changed)
	}

	got, changed = Ratchet(b, GroupInsectMonitors, map[Category]int{})
	if changed || got != b {
		t.Fatalf("empty group must keep baseline, got %+v", got)
	}
}

func TestRatchetKeepsCategoriesNotSupplied(t *testing.T) {
	b := Baseline{StationsInside: 2, StationsOutside: 4, MonitorsBox: 1}

	got, changed := Ratchet(b, GroupBaitStations, map[Category]int{CategoryStationsInside: 3})
	want := Baseline{StationsInside: 3, StationsOutside: 4, MonitorsBox: 1}
	if !changed || got != want {
		t.Fatalf("expected %+v, got %+v changed=%v", want, got, changed)
	}

	got, changed = Ratchet(b, GroupBaitStations, map[Category]int{CategoryStationsInside: 2})
	if changed || got != b {
		t.Fatalf("unchanged counts must not report a change, got %+v changed=%v", got, changed)
	}
}

func TestCountFlagged(t *testing.T) {
	items := stationItems(2, 1)
	items[1].IsNewAddition = true
	if CountFlagged(items) != 1 || !HasFlags(items) {
		t.Fatal("expected exactly one flagged item")
	}
	if HasFlags(stationItems(1, 1)) {
		t.Fatal("fresh items must not be flagged")
	}
}

package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is one bucket of equipment measured against its own baseline.
type Category string

const (
	CategoryStationsInside  Category = "bait_stations_inside"
	CategoryStationsOutside Category = "bait_stations_outside"
	CategoryMonitorsLight   Category = "insect_monitors_light"
	CategoryMonitorsBox     Category = "insect_monitors_box"
)

// Group is an equipment kind backed by one table. Marking, existence checks
// and baseline updates operate per group.
type Group string

const (
	GroupBaitStations   Group = "bait_stations"
	GroupInsectMonitors Group = "insect_monitors"
)

// AllGroups lists every equipment group in a fixed order.
var AllGroups = []Group{GroupBaitStations, GroupInsectMonitors}

// Categories returns the categories that make up the group.
func (g Group) Categories() []Category {
	switch g {
	case GroupBaitStations:
		return []Category{CategoryStationsInside, CategoryStationsOutside}
	case GroupInsectMonitors:
		return []Category{CategoryMonitorsLight, CategoryMonitorsBox}
	}
	return nil
}

// Group returns the group a category belongs to.
func (c Category) Group() Group {
	switch c {
	case CategoryStationsInside, CategoryStationsOutside:
		return GroupBaitStations
	default:
		return GroupInsectMonitors
	}
}

// StationCategory maps a bait station location to its category.
func StationCategory(loc StationLocation) Category {
	if loc == LocationOutside {
		return CategoryStationsOutside
	}
	return CategoryStationsInside
}

// MonitorCategory maps an insect monitor type to its category.
func MonitorCategory(t MonitorType) Category {
	if t == MonitorTypeBox {
		return CategoryMonitorsBox
	}
	return CategoryMonitorsLight
}

// Baseline is the equipment footprint a client is expected to have on site.
type Baseline struct {
	StationsInside  int `json:"expected_bait_stations_inside"`
	StationsOutside int `json:"expected_bait_stations_outside"`
	MonitorsLight   int `json:"expected_insect_monitors_light"`
	MonitorsBox     int `json:"expected_insect_monitors_box"`
}

// Get returns the expected count for a category.
func (b Baseline) Get(c Category) int {
	switch c {
	case CategoryStationsInside:
		return b.StationsInside
	case CategoryStationsOutside:
		return b.StationsOutside
	case CategoryMonitorsLight:
		return b.MonitorsLight
	case CategoryMonitorsBox:
		return b.MonitorsBox
	}
	return 0
}

// Set returns a copy of b with the category's expected count replaced.
func (b Baseline) Set(c Category, n int) Baseline {
	if n < 0 {
		n = 0
	}
	switch c {
	case CategoryStationsInside:
		b.StationsInside = n
	case CategoryStationsOutside:
		b.StationsOutside = n
	case CategoryMonitorsLight:
		b.MonitorsLight = n
	case CategoryMonitorsBox:
		b.MonitorsBox = n
	}
	return b
}

// BaselineOverride carries caller-supplied expected counts used instead of
// the stored baseline for manual correction flows. Nil fields fall through.
type BaselineOverride struct {
	StationsInside  *int `json:"expected_bait_stations_inside,omitempty"`
	StationsOutside *int `json:"expected_bait_stations_outside,omitempty"`
	MonitorsLight   *int `json:"expected_insect_monitors_light,omitempty"`
	MonitorsBox     *int `json:"expected_insect_monitors_box,omitempty"`
}

// IsZero reports whether no override is set.
func (o BaselineOverride) IsZero() bool {
	return o.StationsInside == nil && o.StationsOutside == nil && o.MonitorsLight == nil && o.MonitorsBox == nil
}

// Groups returns the groups touched by at least one override field.
func (o BaselineOverride) Groups() []Group {
	var groups []Group
	if o.StationsInside != nil || o.StationsOutside != nil {
		groups = append(groups, GroupBaitStations)
	}
	if o.MonitorsLight != nil || o.MonitorsBox != nil {
		groups = append(groups, GroupInsectMonitors)
	}
	return groups
}

// Apply overlays the override on b.
func (b Baseline) Apply(o BaselineOverride) Baseline {
	if o.StationsInside != nil {
		b = b.Set(CategoryStationsInside, *o.StationsInside)
	}
	if o.StationsOutside != nil {
		b = b.Set(CategoryStationsOutside, *o.StationsOutside)
	}
	if o.MonitorsLight != nil {
		b = b.Set(CategoryMonitorsLight, *o.MonitorsLight)
	}
	if o.MonitorsBox != nil {
		b = b.Set(CategoryMonitorsBox, *o.MonitorsBox)
	}
	return b
}

// EquipmentItem is the minimal view of a stored station or monitor needed to
// classify it.
type EquipmentItem struct {
	ID            uuid.UUID
	Category      Category
	SortOrder     int
	CreatedAt     time.Time
	IsNewAddition bool
}

// Classification is the outcome of marking one group.
type Classification struct {
	// NewIDs are the items marked as newly installed.
	NewIDs []uuid.UUID
	// Actual is the number of submitted items per category.
	Actual map[Category]int
}

// Classify marks items as pre-existing or new by position. Within each
// category the items are ordered by (sort_order, created_at, id); the first N
// (N being the expected count for that category) are pre-existing and every
// item past position N is new. It does not track which physical unit is new,
// only how many exceed the baseline.
func Classify(items []EquipmentItem, baseline Baseline) Classification {
	ordered := slices.Clone(items)
	SortEquipment(ordered)

	result := Classification{Actual: make(map[Category]int)}
	for _, item := range ordered {
		position := result.Actual[item.Category]
		result.Actual[item.Category] = position + 1
		if position >= baseline.Get(item.Category) {
			result.NewIDs = append(result.NewIDs, item.ID)
		}
	}
	return result
}

// SortEquipment orders items in the canonical classification order.
func SortEquipment(items []EquipmentItem) {
	slices.SortStableFunc(items, func(a, b EquipmentItem) int {
		if a.SortOrder != b.SortOrder {
			return a.SortOrder - b.SortOrder
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

// ExcessCount returns max(0, actual-expected) summed over the categories.
func ExcessCount(actual map[Category]int, baseline Baseline, categories ...Category) int {
	total := 0
	for _, c := range categories {
		if diff := actual[c] - baseline.Get(c); diff > 0 {
			total += diff
		}
	}
	return total
}

// CountByCategory returns how many items fall into each category.
func CountByCategory(items []EquipmentItem) map[Category]int {
	counts := make(map[Category]int)
	for _, item := range items {
		counts[item.Category]++
	}
	return counts
}

// CountFlagged returns how many items of the group carry is_new_addition.
func CountFlagged(items []EquipmentItem) int {
	n := 0
	for _, item := range items {
		if item.IsNewAddition {
			n++
		}
	}
	return n
}

// HasFlags reports whether any item is already marked as new.
func HasFlags(items []EquipmentItem) bool {
	return slices.ContainsFunc(items, func(item EquipmentItem) bool { return item.IsNewAddition })
}

// Ratchet returns the baseline with every category of the group that the
// report supplied set to its actual count. Categories without a submitted
// item keep their baseline.
func Ratchet(b Baseline, g Group, actual map[Category]int) (Baseline, bool) {
	changed := false
	for _, c := range g.Categories() {
		n := actual[c]
		if n <= 0 || b.Get(c) == n {
			continue
		}
		b = b.Set(c, n)
		changed = true
	}
	return b, changed
}

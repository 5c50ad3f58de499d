// Package units maps the free-text unit strings reported by Agmark and eNAM
// onto a small canonical set, and ranks units so that conflicting reports
// for one commodity can be reduced to a single winning unit.
package units

import "strings"

// Canonical price-unit labels. Agmark reports "Rs./Quintal" style labels;
// eNAM reports bare UOM strings ("Quintal", "Nos", "50 Kg").
const (
	PerQuintal = "Rs./Quintal"
	PerUnit    = "Rs./Unit"
	PerKg      = "Rs./Kg"
	PerBundle  = "Rs./Bundle"
)

// MetricTonnes is the single mass unit arrivals are normalized to.
const MetricTonnes = "MT"

// Priority ranks for conflict resolution; lower wins. The gap before
// defaultPriority leaves room for new unit classes without renumbering.
const (
	priorityQuintal = 1
	priorityUnit    = 2
	priorityBundle  = 4
	defaultPriority = 10
)

// Standardize maps a raw unit string to its canonical price-unit label.
// Unrecognized units pass through unchanged.
func Standardize(raw string) string {
	u := strings.ToLower(raw)
	switch {
	case strings.Contains(u, "qui"):
		return PerQuintal
	case strings.Contains(u, "nos"), strings.Contains(u, "number"):
		return PerUnit
	case strings.Contains(u, "kg"), strings.Contains(u, "kilogram"):
		return PerKg
	case strings.Contains(u, "bundle"):
		return PerBundle
	default:
		return raw
	}
}

// Priority returns the conflict-resolution rank of a raw unit string.
// Quintal is preferred because it is the dominant convention across both
// sources; mixing price-per-quintal with price-per-piece in one aggregate
// would be meaningless.
func Priority(raw string) int {
	u := strings.ToLower(raw)
	switch {
	case strings.Contains(u, "qui"):
		return priorityQuintal
	case strings.Contains(u, "nos"), strings.Contains(u, "number"):
		return priorityUnit
	case strings.Contains(u, "bundle"):
		return priorityBundle
	default:
		return defaultPriority
	}
}

// ToTonnes converts an arrival quantity to metric tonnes based on its raw
// unit string. For units with no defined mass conversion ("Nos", bundles)
// the raw quantity is returned with the original unit verbatim and
// converted=false — the caller must not present it as tonnage.
func ToTonnes(qty float64, rawUnit string) (converted float64, unit string, ok bool) {
	u := strings.ToLower(rawUnit)
	switch {
	case strings.Contains(u, "quintal"), strings.Contains(u, "qui"):
		return qty / 10, MetricTonnes, true // 10 quintals = 1 MT
	case strings.Contains(u, "tonne"), strings.Contains(u, "mt"):
		return qty, MetricTonnes, true
	case strings.Contains(u, "kg"), strings.Contains(u, "kilogram"):
		return qty / 1000, MetricTonnes, true
	default:
		return qty, rawUnit, false
	}
}

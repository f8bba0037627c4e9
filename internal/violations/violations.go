// Package violations detects limit violations in solved cases and keeps
// per-run violation statistics.
package violations

import "strings"

// Violations is a bit set of everything wrong with a solved case.
type Violations int

// NoViolations is the empty set.
const NoViolations Violations = 0

const (
	NotConverged Violations = 1 << iota
	BusOvervoltage
	BusUndervoltage
	BranchLoading
	TrafoLoading
	Trafo3wLoading
	SwingBusLoading
)

var violationNames = []struct {
	flag Violations
	name string
}{
	{NotConverged, "NOT_CONVERGED"},
	{BusOvervoltage, "BUS_OVERVOLTAGE"},
	{BusUndervoltage, "BUS_UNDERVOLTAGE"},
	{BranchLoading, "BRANCH_LOADING"},
	{TrafoLoading, "TRAFO_LOADING"},
	{Trafo3wLoading, "TRAFO_3W_LOADING"},
	{SwingBusLoading, "SWING_BUS_LOADING"},
}

// String joins the set flag names with "|".
func (v Violations) String() string {
	if v == NoViolations {
		return "NO_VIOLATIONS"
	}
	var names []string
	for _, vn := range violationNames {
		if v&vn.flag != 0 {
			names = append(names, vn.name)
		}
	}
	return strings.Join(names, "|")
}

// Has reports whether every flag in the argument is set.
func (v Violations) Has(flag Violations) bool { return v&flag == flag }

// MarshalText lets Violations serve as a JSON object key.
func (v Violations) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

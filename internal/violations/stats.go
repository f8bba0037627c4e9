package violations

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Stats accumulates violated values across solver runs, keyed by
// violation type, then limit value, then element index. The same element
// collects one value per run it violated in.
type Stats struct {
	m        map[Violations]map[float64]map[int][]float64
	baseCase map[Violations]map[float64]map[int][]float64
}

// NewStats returns an empty container.
func NewStats() *Stats {
	return &Stats{m: make(map[Violations]map[float64]map[int][]float64)}
}

// RegisterBaseCase moves everything recorded so far into the base case
// snapshot. Violations present before any probing are not probe findings
// and are kept out of the analysis statistics.
func (s *Stats) RegisterBaseCase() {
	s.baseCase = s.m
	s.m = make(map[Violations]map[float64]map[int][]float64)
}

// BaseCase reports whether base case violations were registered.
func (s *Stats) BaseCase() bool { return len(s.baseCase) > 0 }

// Append records one violated value.
func (s *Stats) Append(violation Violations, limit float64, elementIdx int, value float64) {
	byLimit, ok := s.m[violation]
	if !ok {
		byLimit = make(map[float64]map[int][]float64)
		s.m[violation] = byLimit
	}
	byElement, ok := byLimit[limit]
	if !ok {
		byElement = make(map[int][]float64)
		byLimit[limit] = byElement
	}
	byElement[elementIdx] = append(byElement[elementIdx], value)
}

// IsEmpty reports whether no violation was ever recorded.
func (s *Stats) IsEmpty() bool { return len(s.m) == 0 }

// Reset drops the recorded violations but keeps the base case snapshot.
func (s *Stats) Reset() {
	s.m = make(map[Violations]map[float64]map[int][]float64)
}

// ResetBaseCase drops the base case snapshot.
func (s *Stats) ResetBaseCase() { s.baseCase = nil }

// MarshalJSON encodes the stats with string keys at every level.
func (s *Stats) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]map[string][]float64, len(s.m))
	for violation, byLimit := range s.m {
		limits := make(map[string]map[string][]float64, len(byLimit))
		for limit, byElement := range byLimit {
			elements := make(map[string][]float64, len(byElement))
			for idx, values := range byElement {
				elements[strconv.Itoa(idx)] = values
			}
			limits[strconv.FormatFloat(limit, 'g', -1, 64)] = elements
		}
		out[violation.String()] = limits
	}
	return json.Marshal(out)
}

// DescribeFunc renders an element of the violated subsystem for reports.
type DescribeFunc func(violation Violations, elementIdx int) string

// WriteReport prints a human-readable summary ordered by severity: worst
// offenders first, except undervoltage which sorts ascending.
func (s *Stats) WriteReport(w io.Writer, describe DescribeFunc) {
	violationsInOrder := []Violations{
		BusOvervoltage, BusUndervoltage, BranchLoading,
		TrafoLoading, Trafo3wLoading, SwingBusLoading,
	}
	for _, violation := range violationsInOrder {
		byLimit, ok := s.m[violation]
		if !ok {
			continue
		}
		descending := violation != BusUndervoltage
		limits := make([]float64, 0, len(byLimit))
		for limit := range byLimit {
			limits = append(limits, limit)
		}
		sort.Float64s(limits)
		if descending {
			reverse(limits)
		}
		for _, limit := range limits {
			header := fmt.Sprintf(" %s limit=%g ", violation, limit)
			fmt.Fprintln(w, center(header, 80, "-"))
			byElement := byLimit[limit]
			indexes := make([]int, 0, len(byElement))
			for idx := range byElement {
				indexes = append(indexes, idx)
			}
			sort.Slice(indexes, func(i, j int) bool {
				vi := extreme(byElement[indexes[i]], descending)
				vj := extreme(byElement[indexes[j]], descending)
				if descending {
					return vi > vj
				}
				return vi < vj
			})
			for _, idx := range indexes {
				values := append([]float64(nil), byElement[idx]...)
				sort.Float64s(values)
				if descending {
					reverse(values)
				}
				fmt.Fprintf(w, "%s: %v\n", describe(violation, idx), values)
			}
		}
	}
}

func extreme(values []float64, useMax bool) float64 {
	out := values[0]
	for _, v := range values[1:] {
		if (useMax && v > out) || (!useMax && v < out) {
			out = v
		}
	}
	return out
}

func reverse(values []float64) {
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
}

func center(s string, width int, pad string) string {
	if len(s) >= width {
		return s
	}
	total := width - len(s)
	left := total / 2
	right := total - left
	return strings.Repeat(pad, left) + s + strings.Repeat(pad, right)
}

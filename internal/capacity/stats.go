package capacity

import (
	"fmt"
	"io"
	"sort"

	"gridcapacity/internal/contingency"
	"gridcapacity/internal/model"
	"gridcapacity/internal/violations"
)

// UnfeasibleCondition is one probe power that turned out infeasible,
// together with what limited it. Generation probes are recorded with a
// negated power so load and generation conditions stay distinguishable.
type UnfeasibleCondition struct {
	PowerMVA model.PowerMVA             `json:"power_mva"`
	LF       contingency.LimitingFactor `json:"lf"`
}

// ContingencyCondition is one probe power that violated under a specific
// contingency.
type ContingencyCondition struct {
	PowerMVA model.PowerMVA        `json:"power_mva"`
	V        violations.Violations `json:"v"`
}

// FeasibilityEntry groups the infeasible conditions found at one bus.
type FeasibilityEntry struct {
	Bus                  model.Bus             `json:"bus"`
	UnfeasibleConditions []UnfeasibleCondition `json:"unfeasible_conditions"`
}

// BusConditions pairs a bus with the contingency conditions found there.
type BusConditions struct {
	B  model.Bus              `json:"b"`
	CC []ContingencyCondition `json:"cc"`
}

// ContingencyEntry groups per-bus conditions under the limiting outage.
type ContingencyEntry struct {
	Contingency fmt.Stringer    `json:"contingency"`
	PerBus      []BusConditions `json:"bus_contingency_conditions"`
}

// RunStats collects per-run feasibility and contingency statistics in
// insertion order.
type RunStats struct {
	feasOrder []int
	feas      map[int]*FeasibilityEntry

	contOrder []string
	cont      map[string]*ContingencyEntry
}

// NewRunStats returns an empty container.
func NewRunStats() *RunStats {
	return &RunStats{
		feas: make(map[int]*FeasibilityEntry),
		cont: make(map[string]*ContingencyEntry),
	}
}

// Reset drops everything recorded so far.
func (s *RunStats) Reset() {
	s.feasOrder = nil
	s.feas = make(map[int]*FeasibilityEntry)
	s.contOrder = nil
	s.cont = make(map[string]*ContingencyEntry)
}

// Update records one infeasible probe. Generation probes pass gen=true so
// their power is negated in the record.
func (s *RunStats) Update(bus model.Bus, powerMVA model.PowerMVA, gen bool, lf *contingency.LimitingFactor) {
	if lf == nil {
		return
	}
	if gen {
		powerMVA = model.PowerMVA(-complex128(powerMVA))
	}
	entry, ok := s.feas[bus.Number]
	if !ok {
		entry = &FeasibilityEntry{Bus: bus}
		s.feas[bus.Number] = entry
		s.feasOrder = append(s.feasOrder, bus.Number)
	}
	entry.UnfeasibleConditions = append(entry.UnfeasibleConditions,
		UnfeasibleCondition{PowerMVA: powerMVA, LF: *lf})

	if lf.Element == nil {
		return
	}
	key := lf.Element.String()
	contEntry, ok := s.cont[key]
	if !ok {
		contEntry = &ContingencyEntry{Contingency: lf.Element}
		s.cont[key] = contEntry
		s.contOrder = append(s.contOrder, key)
	}
	var conditions *BusConditions
	for i := range contEntry.PerBus {
		if contEntry.PerBus[i].B.Number == bus.Number {
			conditions = &contEntry.PerBus[i]
			break
		}
	}
	if conditions == nil {
		contEntry.PerBus = append(contEntry.PerBus, BusConditions{B: bus})
		conditions = &contEntry.PerBus[len(contEntry.PerBus)-1]
	}
	conditions.CC = append(conditions.CC,
		ContingencyCondition{PowerMVA: powerMVA, V: lf.V})
}

// FeasibilityEntries returns the per-bus infeasible conditions in the
// order the buses were first recorded.
func (s *RunStats) FeasibilityEntries() []FeasibilityEntry {
	out := make([]FeasibilityEntry, 0, len(s.feasOrder))
	for _, number := range s.feasOrder {
		out = append(out, *s.feas[number])
	}
	return out
}

// ContingencyEntries returns the per-outage conditions in the order the
// outages were first recorded.
func (s *RunStats) ContingencyEntries() []ContingencyEntry {
	out := make([]ContingencyEntry, 0, len(s.contOrder))
	for _, key := range s.contOrder {
		out = append(out, *s.cont[key])
	}
	return out
}

func (e ContingencyEntry) conditionCount() int {
	total := 0
	for _, perBus := range e.PerBus {
		total += len(perBus.CC)
	}
	return total
}

// WriteReport prints the run statistics: feasibility findings per bus,
// then contingencies ordered by how often they limited a probe.
func (s *RunStats) WriteReport(w io.Writer) {
	if len(s.feasOrder) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, center(" FEASIBILITY STATS ", 80, "="))
		for _, entry := range s.FeasibilityEntries() {
			fmt.Fprintf(w, "%s[%d]:\n", entry.Bus, len(entry.UnfeasibleConditions))
			for _, condition := range entry.UnfeasibleConditions {
				fmt.Fprintf(w, "  %s %s\n", condition.PowerMVA, condition.LF)
			}
		}
	}
	if len(s.contOrder) > 0 {
		entries := s.ContingencyEntries()
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].conditionCount() > entries[j].conditionCount()
		})
		fmt.Fprintln(w)
		fmt.Fprintln(w, center(" CONTINGENCIES STATS ", 80, "="))
		for _, entry := range entries {
			fmt.Fprintf(w, "contingency=%s[%d]:\n", entry.Contingency, entry.conditionCount())
			for _, perBus := range entry.PerBus {
				fmt.Fprintf(w, "  %s:\n", perBus.B)
				for _, condition := range perBus.CC {
					fmt.Fprintf(w, "    %s %s\n", condition.PowerMVA, condition.V)
				}
			}
		}
	}
}

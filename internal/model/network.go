package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an element lookup by identity fails.
	ErrNotFound = errors.New("element not found")
	// ErrDuplicate is returned when an element with the same identity
	// already exists.
	ErrDuplicate = errors.New("duplicate element")
)

// Network is a complete grid case: topology, injections and the system
// power base. It is the unit the solver and the analysis operate on.
type Network struct {
	CaseName   string     `json:"case_name,omitempty"`
	SnMVA      float64    `json:"sn_mva"`
	Buses      []Bus      `json:"buses"`
	Branches   []Branch   `json:"branches"`
	Trafos     []Trafo    `json:"trafos,omitempty"`
	Trafos3w   []Trafo3w  `json:"trafos3w,omitempty"`
	Loads      []Load     `json:"loads"`
	Machines   []Machine  `json:"machines,omitempty"`
	SwingBuses []SwingBus `json:"swing_buses"`
}

// Validate checks referential integrity and identity uniqueness.
func (n *Network) Validate() error {
	if n.SnMVA <= 0 {
		return errors.New("sn_mva must be > 0")
	}
	if len(n.Buses) == 0 {
		return errors.New("case has no buses")
	}
	if len(n.SwingBuses) == 0 {
		return errors.New("case has no swing buses")
	}
	busNumbers := make(map[int]struct{}, len(n.Buses))
	for _, b := range n.Buses {
		if _, ok := busNumbers[b.Number]; ok {
			return fmt.Errorf("bus %d: %w", b.Number, ErrDuplicate)
		}
		busNumbers[b.Number] = struct{}{}
	}
	checkBus := func(kind string, number int) error {
		if _, ok := busNumbers[number]; !ok {
			return fmt.Errorf("%s references unknown bus %d", kind, number)
		}
		return nil
	}
	branchKeys := make(map[string]struct{}, len(n.Branches))
	for _, br := range n.Branches {
		if _, ok := branchKeys[br.Key()]; ok {
			return fmt.Errorf("branch %s: %w", br.Key(), ErrDuplicate)
		}
		branchKeys[br.Key()] = struct{}{}
		if err := checkBus("branch", br.FromNumber); err != nil {
			return err
		}
		if err := checkBus("branch", br.ToNumber); err != nil {
			return err
		}
	}
	trafoKeys := make(map[string]struct{}, len(n.Trafos))
	for _, t := range n.Trafos {
		if _, ok := trafoKeys[t.Key()]; ok {
			return fmt.Errorf("trafo %s: %w", t.Key(), ErrDuplicate)
		}
		trafoKeys[t.Key()] = struct{}{}
		if err := checkBus("trafo", t.FromNumber); err != nil {
			return err
		}
		if err := checkBus("trafo", t.ToNumber); err != nil {
			return err
		}
	}
	for _, t := range n.Trafos3w {
		for _, number := range []int{t.Wind1Number, t.Wind2Number, t.Wind3Number} {
			if err := checkBus("trafo3w", number); err != nil {
				return err
			}
		}
	}
	loadKeys := make(map[string]struct{}, len(n.Loads))
	for _, l := range n.Loads {
		key := fmt.Sprintf("%d-%s", l.Number, l.ID)
		if _, ok := loadKeys[key]; ok {
			return fmt.Errorf("load %s: %w", key, ErrDuplicate)
		}
		loadKeys[key] = struct{}{}
		if err := checkBus("load", l.Number); err != nil {
			return err
		}
	}
	machineKeys := make(map[string]struct{}, len(n.Machines))
	for _, m := range n.Machines {
		key := fmt.Sprintf("%d-%s", m.Number, m.ID)
		if _, ok := machineKeys[key]; ok {
			return fmt.Errorf("machine %s: %w", key, ErrDuplicate)
		}
		machineKeys[key] = struct{}{}
		if err := checkBus("machine", m.Number); err != nil {
			return err
		}
	}
	for _, s := range n.SwingBuses {
		if err := checkBus("swing bus", s.Number); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so probes and contingencies never corrupt the
// base case.
func (n *Network) Clone() *Network {
	c := &Network{
		CaseName:   n.CaseName,
		SnMVA:      n.SnMVA,
		Buses:      append([]Bus(nil), n.Buses...),
		Branches:   append([]Branch(nil), n.Branches...),
		Trafos:     append([]Trafo(nil), n.Trafos...),
		Trafos3w:   append([]Trafo3w(nil), n.Trafos3w...),
		Loads:      append([]Load(nil), n.Loads...),
		Machines:   append([]Machine(nil), n.Machines...),
		SwingBuses: append([]SwingBus(nil), n.SwingBuses...),
	}
	return c
}

// BusIndex returns the slice index of the bus with the given number.
func (n *Network) BusIndex(number int) (int, bool) {
	for i, b := range n.Buses {
		if b.Number == number {
			return i, true
		}
	}
	return 0, false
}

// BusLoadMVA sums all in-service loads at a bus.
func (n *Network) BusLoadMVA(number int) PowerMVA {
	var sum complex128
	for _, l := range n.Loads {
		if l.InService && l.Number == number {
			sum += complex128(l.MVA)
		}
	}
	return PowerMVA(sum)
}

// BusGenMVA sums all in-service machines at a bus.
func (n *Network) BusGenMVA(number int) PowerMVA {
	var sum complex128
	for _, m := range n.Machines {
		if m.InService && m.Number == number {
			sum += complex128(m.MVA)
		}
	}
	return PowerMVA(sum)
}

// AddLoad attaches a new load identified by (bus, id).
func (n *Network) AddLoad(number int, id string, mva PowerMVA) error {
	if _, ok := n.BusIndex(number); !ok {
		return fmt.Errorf("add load: bus %d: %w", number, ErrNotFound)
	}
	for _, l := range n.Loads {
		if l.Number == number && l.ID == id {
			return fmt.Errorf("add load %d %q: %w", number, id, ErrDuplicate)
		}
	}
	n.Loads = append(n.Loads, Load{Number: number, ID: id, MVA: mva, InService: true})
	return nil
}

// RemoveLoad deletes the load identified by (bus, id).
func (n *Network) RemoveLoad(number int, id string) error {
	for i, l := range n.Loads {
		if l.Number == number && l.ID == id {
			n.Loads = append(n.Loads[:i], n.Loads[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove load %d %q: %w", number, id, ErrNotFound)
}

// AddMachine attaches a new machine identified by (bus, id).
func (n *Network) AddMachine(number int, id string, mva PowerMVA) error {
	if _, ok := n.BusIndex(number); !ok {
		return fmt.Errorf("add machine: bus %d: %w", number, ErrNotFound)
	}
	for _, m := range n.Machines {
		if m.Number == number && m.ID == id {
			return fmt.Errorf("add machine %d %q: %w", number, id, ErrDuplicate)
		}
	}
	n.Machines = append(n.Machines, Machine{Number: number, ID: id, MVA: mva, InService: true})
	return nil
}

// RemoveMachine deletes the machine identified by (bus, id).
func (n *Network) RemoveMachine(number int, id string) error {
	for i, m := range n.Machines {
		if m.Number == number && m.ID == id {
			n.Machines = append(n.Machines[:i], n.Machines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove machine %d %q: %w", number, id, ErrNotFound)
}

// FindBranch locates a branch by (from, to, id). An empty id matches the
// first circuit between the buses.
func (n *Network) FindBranch(from, to int, id string) (int, bool) {
	for i, br := range n.Branches {
		if br.FromNumber == from && br.ToNumber == to && (id == "" || br.ID == id) {
			return i, true
		}
	}
	return 0, false
}

// FindTrafo locates a two-winding transformer by (from, to, id).
func (n *Network) FindTrafo(from, to int, id string) (int, bool) {
	for i, t := range n.Trafos {
		if t.FromNumber == from && t.ToNumber == to && (id == "" || t.ID == id) {
			return i, true
		}
	}
	return 0, false
}

// SetBranchStatus switches a branch in or out of service.
func (n *Network) SetBranchStatus(from, to int, id string, inService bool) error {
	i, ok := n.FindBranch(from, to, id)
	if !ok {
		return fmt.Errorf("branch %d-%d-%s: %w", from, to, id, ErrNotFound)
	}
	n.Branches[i].InService = inService
	return nil
}

// SetTrafoStatus switches a two-winding transformer in or out of service.
func (n *Network) SetTrafoStatus(from, to int, id string, inService bool) error {
	i, ok := n.FindTrafo(from, to, id)
	if !ok {
		return fmt.Errorf("trafo %d-%d-%s: %w", from, to, id, ErrNotFound)
	}
	n.Trafos[i].InService = inService
	return nil
}

package powerflow

import (
	"fmt"

	"gridcapacity/internal/model"
)

// system is the solver view of a network: node-indexed admittances and
// injections. Nodes are the case buses in order, followed by one internal
// star node per in-service three-winding transformer.
type system struct {
	net    *model.Network
	nodes  int
	busIdx map[int]int // bus number -> node index
	star   []int       // node index of the star point per trafo3w (-1 when out of service)

	y [][]complex128

	slack    []bool    // node is held at fixed voltage
	slackVm  []float64 // setpoint for slack nodes
	active   []bool    // node participates in the equations
	specMVA  []complex128
	excluded []bool // disconnected from every slack
}

func buildSystem(net *model.Network) (*system, error) {
	nBuses := len(net.Buses)
	star3w := 0
	for _, t := range net.Trafos3w {
		if t.InService {
			star3w++
		}
	}
	s := &system{
		net:    net,
		nodes:  nBuses + star3w,
		busIdx: make(map[int]int, nBuses),
		star:   make([]int, len(net.Trafos3w)),
	}
	for i, b := range net.Buses {
		s.busIdx[b.Number] = i
	}
	s.y = make([][]complex128, s.nodes)
	for i := range s.y {
		s.y[i] = make([]complex128, s.nodes)
	}
	s.slack = make([]bool, s.nodes)
	s.slackVm = make([]float64, s.nodes)
	s.active = make([]bool, s.nodes)
	s.specMVA = make([]complex128, s.nodes)
	s.excluded = make([]bool, s.nodes)

	addSeries := func(i, j int, r, x float64) error {
		if r == 0 && x == 0 {
			return fmt.Errorf("zero impedance between nodes %d and %d", i, j)
		}
		ys := 1 / complex(r, x)
		s.y[i][i] += ys
		s.y[j][j] += ys
		s.y[i][j] -= ys
		s.y[j][i] -= ys
		return nil
	}

	for _, br := range net.Branches {
		if !br.InService {
			continue
		}
		i, ok := s.busIdx[br.FromNumber]
		if !ok {
			return nil, fmt.Errorf("branch %s: unknown bus %d", br.Key(), br.FromNumber)
		}
		j, ok := s.busIdx[br.ToNumber]
		if !ok {
			return nil, fmt.Errorf("branch %s: unknown bus %d", br.Key(), br.ToNumber)
		}
		if err := addSeries(i, j, br.RPU, br.XPU); err != nil {
			return nil, fmt.Errorf("branch %s: %w", br.Key(), err)
		}
		half := complex(0, br.BPU/2)
		s.y[i][i] += half
		s.y[j][j] += half
	}
	for _, t := range net.Trafos {
		if !t.InService {
			continue
		}
		i, ok := s.busIdx[t.FromNumber]
		if !ok {
			return nil, fmt.Errorf("trafo %s: unknown bus %d", t.Key(), t.FromNumber)
		}
		j, ok := s.busIdx[t.ToNumber]
		if !ok {
			return nil, fmt.Errorf("trafo %s: unknown bus %d", t.Key(), t.ToNumber)
		}
		if err := addSeries(i, j, t.RPU, t.XPU); err != nil {
			return nil, fmt.Errorf("trafo %s: %w", t.Key(), err)
		}
	}
	next := nBuses
	for ti, t := range net.Trafos3w {
		if !t.InService {
			s.star[ti] = -1
			continue
		}
		starNode := next
		next++
		s.star[ti] = starNode
		windings := []struct {
			number int
			r, x   float64
		}{
			{t.Wind1Number, t.R1PU, t.X1PU},
			{t.Wind2Number, t.R2PU, t.X2PU},
			{t.Wind3Number, t.R3PU, t.X3PU},
		}
		for _, w := range windings {
			i, ok := s.busIdx[w.number]
			if !ok {
				return nil, fmt.Errorf("trafo3w %s: unknown bus %d", t.Key(), w.number)
			}
			if err := addSeries(i, starNode, w.r, w.x); err != nil {
				return nil, fmt.Errorf("trafo3w %s: %w", t.Key(), err)
			}
		}
	}

	for _, sb := range net.SwingBuses {
		i, ok := s.busIdx[sb.Number]
		if !ok {
			return nil, fmt.Errorf("swing bus: unknown bus %d", sb.Number)
		}
		s.slack[i] = true
		s.slackVm[i] = sb.VmPU
	}
	for _, l := range net.Loads {
		if !l.InService {
			continue
		}
		if i, ok := s.busIdx[l.Number]; ok {
			s.specMVA[i] -= complex128(l.MVA)
		}
	}
	for _, m := range net.Machines {
		if !m.InService {
			continue
		}
		if i, ok := s.busIdx[m.Number]; ok {
			s.specMVA[i] += complex128(m.MVA)
		}
	}

	s.markConnectivity()
	return s, nil
}

// markConnectivity flags every node reachable from a slack node through
// nonzero admittances. Unreachable nodes are excluded from the equations
// and reported with an undefined voltage.
func (s *system) markConnectivity() {
	visited := make([]bool, s.nodes)
	queue := make([]int, 0, s.nodes)
	for i := 0; i < s.nodes; i++ {
		if s.slack[i] {
			visited[i] = true
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for j := 0; j < s.nodes; j++ {
			if j == i || visited[j] || s.y[i][j] == 0 {
				continue
			}
			visited[j] = true
			queue = append(queue, j)
		}
	}
	for i := 0; i < s.nodes; i++ {
		s.excluded[i] = !visited[i]
		s.active[i] = visited[i] && !s.slack[i]
	}
	for i, b := range s.net.Buses {
		if b.Type == model.BusTypeIsolated {
			s.excluded[i] = true
			s.active[i] = false
		}
	}
}

// unknowns lists the node indexes that carry mismatch equations.
func (s *system) unknowns() []int {
	out := make([]int, 0, s.nodes)
	for i := 0; i < s.nodes; i++ {
		if s.active[i] {
			out = append(out, i)
		}
	}
	return out
}

// initialVoltages returns a flat start with slack setpoints applied.
func (s *system) initialVoltages() ([]float64, []float64) {
	vm := make([]float64, s.nodes)
	va := make([]float64, s.nodes)
	for i := 0; i < s.nodes; i++ {
		vm[i] = 1.0
		if s.slack[i] {
			vm[i] = s.slackVm[i]
		}
	}
	return vm, va
}

// injection computes the complex power flowing into the network at node i
// in per unit for the given voltage state.
func (s *system) injection(i int, vm, va []float64) (p, q float64) {
	for k := 0; k < s.nodes; k++ {
		yik := s.y[i][k]
		if yik == 0 && k != i {
			continue
		}
		g, b := real(yik), imag(yik)
		dth := va[i] - va[k]
		cos, sin := cosSin(dth)
		p += vm[i] * vm[k] * (g*cos + b*sin)
		q += vm[i] * vm[k] * (g*sin - b*cos)
	}
	return p, q
}

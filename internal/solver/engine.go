package solver

import (
	"math/rand"
	"sort"
	"time"
)

// Options bounds the search. MaxSearchTime defaults to 10s when zero; the
// API layer clamps caller-supplied budgets to 1..60s, the engine itself
// accepts any positive duration so tests can run tight budgets.
type Options struct {
	MaxSearchTime time.Duration
	Seed          int64
}

// Assignment is the raw search output: for each vehicle the visited location
// indices from depot to depot (empty when the vehicle is unused) and the
// cumulative time value at every visited position. Dropped lists servable
// stops excluded at the drop penalty.
type Assignment struct {
	Routes  [][]int
	Times   [][]int
	Dropped []int
	Cost    int
}

// Metrics describes one engine run.
type Metrics struct {
	Iterations    int           `json:"iterations"`
	Improvements  int           `json:"improvements"`
	LocalOptima   int           `json:"localOptima"`
	PenalizedArcs int           `json:"penalizedArcs"`
	BestCost      int           `json:"bestCost"`
	FinalCost     int           `json:"finalCost"`
	Elapsed       time.Duration `json:"elapsedNs"`
}

type arc [2]int

type state struct {
	routes  [][]int // customer sequences per vehicle, depot omitted
	dropped map[int]bool
}

func (s *state) clone() *state {
	out := &state{routes: make([][]int, len(s.routes)), dropped: make(map[int]bool, len(s.dropped))}
	for i, r := range s.routes {
		out.routes[i] = append([]int(nil), r...)
	}
	for k := range s.dropped {
		out.dropped[k] = true
	}
	return out
}

type engine struct {
	p   *Problem
	rng *rand.Rand
	pen map[arc]int
	lam int
}

// Solve runs cheapest-insertion construction followed by guided local search
// until the wall-clock budget expires, then returns the best assignment
// found. An all-dropped assignment is a valid (if poor) outcome; only a
// fleetless problem is infeasible.
func Solve(p *Problem, opt Options) (*Assignment, Metrics, error) {
	started := time.Now()
	if len(p.Vehicles) == 0 {
		return nil, Metrics{}, ErrInfeasible
	}
	budget := opt.MaxSearchTime
	if budget <= 0 {
		budget = 10 * time.Second
	}
	deadline := started.Add(budget)
	seed := opt.Seed
	if seed == 0 {
		seed = 1
	}

	e := &engine{p: p, rng: rand.New(rand.NewSource(seed)), pen: map[arc]int{}}
	s := e.construct()
	e.lam = e.lambda(s)

	best := s.clone()
	bestCost := e.trueCost(s)
	m := Metrics{BestCost: bestCost}

	for len(p.servable) > 0 && time.Now().Before(deadline) {
		m.Iterations++
		moved := false
		if e.reinsertDropped(s) {
			moved = true
		}
		if e.relocate(s) {
			moved = true
		}
		if e.swap(s) {
			moved = true
		}
		if e.twoOpt(s) {
			moved = true
		}
		if c := e.trueCost(s); c < bestCost {
			best = s.clone()
			bestCost = c
			m.Improvements++
			m.BestCost = c
		}
		if !moved {
			// Local optimum of the augmented objective: penalize the
			// highest-utility arcs and keep going.
			e.penalize(s, &m)
		}
	}

	m.FinalCost = bestCost
	m.Elapsed = time.Since(started)
	return e.assignment(best, bestCost), m, nil
}

// construct builds the initial solution by globally cheapest feasible
// insertion; stops with no feasible slot start out dropped.
func (e *engine) construct() *state {
	p := e.p
	s := &state{routes: make([][]int, len(p.Vehicles)), dropped: map[int]bool{}}
	for i := range s.routes {
		s.routes[i] = []int{}
	}
	unassigned := append([]int(nil), p.servable...)
	for len(unassigned) > 0 {
		bestDelta := int(^uint(0) >> 1)
		bestNode, bestV, bestPos := -1, -1, -1
		for ni, node := range unassigned {
			for v := range s.routes {
				base := e.routeCost(s.routes[v])
				for pos := 0; pos <= len(s.routes[v]); pos++ {
					cand := insertAt(s.routes[v], node, pos)
					if !p.feasible(cand, p.Vehicles[v].Capacity) {
						continue
					}
					d := e.routeCost(cand) - base
					if d < bestDelta {
						bestDelta = d
						bestNode, bestV, bestPos = ni, v, pos
					}
				}
			}
		}
		if bestNode < 0 {
			break
		}
		s.routes[bestV] = insertAt(s.routes[bestV], unassigned[bestNode], bestPos)
		unassigned = append(unassigned[:bestNode], unassigned[bestNode+1:]...)
	}
	for _, node := range unassigned {
		s.dropped[node] = true
	}
	return s
}

// reinsertDropped tries to bring dropped stops back: any feasible insertion
// beats the drop penalty by construction.
func (e *engine) reinsertDropped(s *state) bool {
	p := e.p
	nodes := make([]int, 0, len(s.dropped))
	for n := range s.dropped {
		nodes = append(nodes, n)
	}
	sort.Ints(nodes)
	moved := false
	for _, oi := range e.rng.Perm(len(nodes)) {
		node := nodes[oi]
		bestDelta := int(^uint(0) >> 1)
		bestV, bestPos := -1, -1
		for v := range s.routes {
			base := e.augCost(s.routes[v])
			for pos := 0; pos <= len(s.routes[v]); pos++ {
				cand := insertAt(s.routes[v], node, pos)
				if !p.feasible(cand, p.Vehicles[v].Capacity) {
					continue
				}
				d := e.augCost(cand) - base
				if d < bestDelta {
					bestDelta = d
					bestV, bestPos = v, pos
				}
			}
		}
		if bestV >= 0 && bestDelta < p.DropPenalty {
			s.routes[bestV] = insertAt(s.routes[bestV], node, bestPos)
			delete(s.dropped, node)
			moved = true
		}
	}
	return moved
}

// relocate moves one stop to the best improving position in any route
// (first improvement over the augmented cost).
func (e *engine) relocate(s *state) bool {
	p := e.p
	for _, va := range e.rng.Perm(len(s.routes)) {
		for i := 0; i < len(s.routes[va]); i++ {
			node := s.routes[va][i]
			removed := removeAt(s.routes[va], i)
			baseA := e.augCost(s.routes[va])
			newA := e.augCost(removed)
			for vb := range s.routes {
				target := s.routes[vb]
				baseB := e.augCost(target)
				if vb == va {
					target = removed
					baseB = newA
				}
				for pos := 0; pos <= len(target); pos++ {
					if vb == va && pos == i {
						continue
					}
					cand := insertAt(target, node, pos)
					if !p.feasible(cand, p.Vehicles[vb].Capacity) {
						continue
					}
					var delta int
					if vb == va {
						delta = e.augCost(cand) - baseA
					} else {
						if !p.feasible(removed, p.Vehicles[va].Capacity) {
							continue
						}
						delta = (newA + e.augCost(cand)) - (baseA + baseB)
					}
					if delta < 0 {
						if vb == va {
							s.routes[va] = cand
						} else {
							s.routes[va] = removed
							s.routes[vb] = cand
						}
						return true
					}
				}
			}
		}
	}
	return false
}

// swap exchanges two stops between different routes.
func (e *engine) swap(s *state) bool {
	p := e.p
	for va := 0; va < len(s.routes); va++ {
		for vb := va + 1; vb < len(s.routes); vb++ {
			for i := 0; i < len(s.routes[va]); i++ {
				for j := 0; j < len(s.routes[vb]); j++ {
					ca := append([]int(nil), s.routes[va]...)
					cb := append([]int(nil), s.routes[vb]...)
					ca[i], cb[j] = cb[j], ca[i]
					if !p.feasible(ca, p.Vehicles[va].Capacity) || !p.feasible(cb, p.Vehicles[vb].Capacity) {
						continue
					}
					before := e.augCost(s.routes[va]) + e.augCost(s.routes[vb])
					after := e.augCost(ca) + e.augCost(cb)
					if after < before {
						s.routes[va] = ca
						s.routes[vb] = cb
						return true
					}
				}
			}
		}
	}
	return false
}

// twoOpt reverses a segment inside a single route.
func (e *engine) twoOpt(s *state) bool {
	p := e.p
	for v := range s.routes {
		seq := s.routes[v]
		n := len(seq)
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := append([]int(nil), seq...)
				for a, b := i, k; a < b; a, b = a+1, b-1 {
					cand[a], cand[b] = cand[b], cand[a]
				}
				if !p.feasible(cand, p.Vehicles[v].Capacity) {
					continue
				}
				if e.augCost(cand) < e.augCost(seq) {
					s.routes[v] = cand
					return true
				}
			}
		}
	}
	return false
}

// penalize bumps the guided-local-search penalty of the arcs with maximal
// utility cost/(1+penalty), steering later passes away from them.
func (e *engine) penalize(s *state, m *Metrics) {
	bestU := 0.0
	var bestArcs []arc
	for _, seq := range s.routes {
		for _, a := range arcsOf(seq) {
			u := float64(e.p.Transit(a[0], a[1])) / float64(1+e.pen[a])
			switch {
			case u > bestU:
				bestU = u
				bestArcs = []arc{a}
			case u == bestU:
				bestArcs = append(bestArcs, a)
			}
		}
	}
	if len(bestArcs) == 0 {
		return
	}
	for _, a := range bestArcs {
		e.pen[a]++
	}
	m.LocalOptima++
	m.PenalizedArcs += len(bestArcs)
}

// lambda scales arc penalties relative to the construction cost.
func (e *engine) lambda(s *state) int {
	total, arcs := 0, 0
	for _, seq := range s.routes {
		total += e.routeCost(seq)
		arcs += len(arcsOf(seq))
	}
	if arcs == 0 {
		return 1
	}
	lam := total / (10 * arcs)
	if lam < 1 {
		lam = 1
	}
	return lam
}

func (e *engine) routeCost(seq []int) int {
	total := 0
	for _, a := range arcsOf(seq) {
		total += e.p.Transit(a[0], a[1])
	}
	return total
}

func (e *engine) augCost(seq []int) int {
	total := 0
	for _, a := range arcsOf(seq) {
		total += e.p.Transit(a[0], a[1]) + e.lam*e.pen[a]
	}
	return total
}

func (e *engine) trueCost(s *state) int {
	total := e.p.DropPenalty * len(s.dropped)
	for _, seq := range s.routes {
		total += e.routeCost(seq)
	}
	return total
}

// assignment converts the best state into the raw depot-to-depot form, with
// each used vehicle's departure delayed as far as its windows allow so
// reported durations exclude avoidable depot idling.
func (e *engine) assignment(s *state, cost int) *Assignment {
	p := e.p
	a := &Assignment{
		Routes: make([][]int, len(s.routes)),
		Times:  make([][]int, len(s.routes)),
		Cost:   cost,
	}
	for v, seq := range s.routes {
		if len(seq) == 0 {
			a.Routes[v] = []int{}
			a.Times[v] = []int{}
			continue
		}
		start, times, end := p.normalizeStart(seq)
		route := make([]int, 0, len(seq)+2)
		route = append(route, 0)
		route = append(route, seq...)
		route = append(route, 0)
		cum := make([]int, 0, len(seq)+2)
		cum = append(cum, start)
		cum = append(cum, times...)
		cum = append(cum, end)
		a.Routes[v] = route
		a.Times[v] = cum
	}
	for n := range s.dropped {
		a.Dropped = append(a.Dropped, n)
	}
	sort.Ints(a.Dropped)
	return a
}

// schedule walks a customer sequence with earliest-start semantics: waiting
// for a window to open is allowed, arriving after it closes is not. Returns
// the cumulative (post-wait) time at each stop and the depot return time.
func (p *Problem) schedule(seq []int) (times []int, end int, ok bool) {
	w := p.depot
	t := w.Start
	cur := 0
	times = make([]int, len(seq))
	for k, node := range seq {
		t += p.Transit(cur, node)
		nw := p.Locations[node].Window
		if t < nw.Start {
			t = nw.Start
		}
		if t > nw.End {
			return nil, 0, false
		}
		times[k] = t
		cur = node
	}
	t += p.Transit(cur, 0)
	if t > w.End || t > HorizonMin {
		return nil, 0, false
	}
	return times, t, true
}

func (p *Problem) load(seq []int) int {
	total := 0
	for _, n := range seq {
		total += p.Locations[n].Demand
	}
	return total
}

func (p *Problem) feasible(seq []int, capacity int) bool {
	if p.load(seq) > capacity {
		return false
	}
	_, _, ok := p.schedule(seq)
	return ok
}

// normalizeStart computes the final schedule for a feasible sequence,
// delaying the depot departure by as much as the accumulated waiting allows
// without pushing any stop past its window or moving the return time.
func (p *Problem) normalizeStart(seq []int) (start int, times []int, end int) {
	w := p.depot
	t := w.Start
	cur := 0
	serviceStart := make([]int, len(seq))
	waitPrefix := make([]int, len(seq)) // cumulative wait through stop k
	cumWait := 0
	for k, node := range seq {
		t += p.Transit(cur, node)
		nw := p.Locations[node].Window
		if t < nw.Start {
			cumWait += nw.Start - t
			t = nw.Start
		}
		serviceStart[k] = t
		waitPrefix[k] = cumWait
		cur = node
	}
	t += p.Transit(cur, 0)
	end = t

	delay := cumWait
	for k, node := range seq {
		slack := waitPrefix[k] + (p.Locations[node].Window.End - serviceStart[k])
		if slack < delay {
			delay = slack
		}
	}
	if delay < 0 {
		delay = 0
	}

	start = w.Start + delay
	t = start
	cur = 0
	times = make([]int, len(seq))
	for k, node := range seq {
		t += p.Transit(cur, node)
		if nw := p.Locations[node].Window; t < nw.Start {
			t = nw.Start
		}
		times[k] = t
		cur = node
	}
	end = t + p.Transit(cur, 0)
	return start, times, end
}

func arcsOf(seq []int) []arc {
	if len(seq) == 0 {
		return nil
	}
	out := make([]arc, 0, len(seq)+1)
	cur := 0
	for _, n := range seq {
		out = append(out, arc{cur, n})
		cur = n
	}
	out = append(out, arc{cur, 0})
	return out
}

func insertAt(seq []int, node, pos int) []int {
	out := make([]int, 0, len(seq)+1)
	out = append(out, seq[:pos]...)
	out = append(out, node)
	out = append(out, seq[pos:]...)
	return out
}

func removeAt(seq []int, i int) []int {
	out := make([]int, 0, len(seq)-1)
	out = append(out, seq[:i]...)
	out = append(out, seq[i+1:]...)
	return out
}

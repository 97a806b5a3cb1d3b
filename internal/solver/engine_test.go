package solver

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"routeopt/internal/model"
)

func shortOpts(seed int64) Options {
	return Options{MaxSearchTime: 50 * time.Millisecond, Seed: seed}
}

func TestSolveNoVehiclesInfeasible(t *testing.T) {
	p := &Problem{depot: wideWindow()}
	_, _, err := Solve(p, shortOpts(1))
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("want ErrInfeasible, got %v", err)
	}
}

func TestSolveDepotOnly(t *testing.T) {
	p := testProblem(t,
		[]model.Location{{Name: "depot", Window: wideWindow()}},
		[]model.Vehicle{{ID: "v1", Capacity: 10}},
	)
	a, m, err := Solve(p, shortOpts(1))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(a.Routes) != 1 || len(a.Routes[0]) != 0 {
		t.Fatalf("want one empty route, got %v", a.Routes)
	}
	if len(a.Dropped) != 0 || a.Cost != 0 {
		t.Fatalf("trivial instance: dropped=%v cost=%d", a.Dropped, a.Cost)
	}
	if m.Iterations != 0 {
		t.Fatalf("no servable stops should mean no search iterations, got %d", m.Iterations)
	}
}

func TestSolveServesAllWhenEasy(t *testing.T) {
	p := testProblem(t,
		[]model.Location{
			{Name: "depot", Window: wideWindow()},
			{Name: "a", Demand: 2, Window: wideWindow()},
			{Name: "b", Demand: 2, Window: wideWindow()},
			{Name: "c", Demand: 2, Window: wideWindow()},
		},
		[]model.Vehicle{{ID: "v1", Capacity: 10}},
	)
	a, _, err := Solve(p, shortOpts(1))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(a.Dropped) != 0 {
		t.Fatalf("all stops fit, dropped %v", a.Dropped)
	}
	seen := map[int]bool{}
	for _, seq := range a.Routes {
		for _, n := range seq {
			if n != 0 {
				if seen[n] {
					t.Fatalf("stop %d visited twice", n)
				}
				seen[n] = true
			}
		}
	}
	if len(seen) != 3 {
		t.Fatalf("visited %d stops, want 3", len(seen))
	}
	// uniform matrix: any tour of 3 stops costs 4 arcs * 10 minutes
	if a.Cost != 40 {
		t.Fatalf("cost: got %d, want 40", a.Cost)
	}
}

func TestSolveRespectsTimeWindows(t *testing.T) {
	p := testProblem(t,
		[]model.Location{
			{Name: "depot", Window: wideWindow()},
			{Name: "late", Demand: 1, Window: model.TimeWindow{Start: 200, End: 210}},
			{Name: "early", Demand: 1, Window: model.TimeWindow{Start: 100, End: 110}},
		},
		[]model.Vehicle{{ID: "v1", Capacity: 10}},
	)
	a, _, err := Solve(p, shortOpts(1))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	sol, err := Extract(p, a)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(sol.Dropped) != 0 {
		t.Fatalf("both windows reachable, dropped %v", sol.Dropped)
	}
	if len(sol.Routes) != 1 {
		t.Fatalf("want a single route, got %d", len(sol.Routes))
	}
	r := sol.Routes[0]
	// the early window must be served first despite its higher index
	if !reflect.DeepEqual(r.Stops, []int{0, 2, 1, 0}) {
		t.Fatalf("stop order: got %v", r.Stops)
	}
	for k := 1; k < len(r.Stops)-1; k++ {
		w := p.Locations[r.Stops[k]].Window
		if r.ArrivalsMin[k] < w.Start || r.ArrivalsMin[k] > w.End {
			t.Fatalf("arrival %d outside window [%d,%d]", r.ArrivalsMin[k], w.Start, w.End)
		}
	}
}

func TestSolveDropsWhenCapacityShort(t *testing.T) {
	p := testProblem(t,
		[]model.Location{
			{Name: "depot", Window: wideWindow()},
			{Name: "a", Demand: 6, Window: wideWindow()},
			{Name: "b", Demand: 6, Window: wideWindow()},
		},
		[]model.Vehicle{{ID: "v1", Capacity: 9}},
	)
	a, _, err := Solve(p, shortOpts(1))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(a.Dropped) != 1 {
		t.Fatalf("exactly one stop must be dropped, got %v", a.Dropped)
	}
	served := 0
	for _, seq := range a.Routes {
		served += max(0, len(seq)-2)
	}
	if served != 1 {
		t.Fatalf("served %d stops, want 1", served)
	}
}

func TestSolveDeterministicForSeed(t *testing.T) {
	locs := []model.Location{
		{Name: "depot", Window: wideWindow()},
		{Name: "a", Demand: 2, Window: model.TimeWindow{Start: 0, End: 700}},
		{Name: "b", Demand: 3, Window: model.TimeWindow{Start: 100, End: 900}},
		{Name: "c", Demand: 2, Window: wideWindow()},
		{Name: "d", Demand: 4, Window: model.TimeWindow{Start: 300, End: 1200}},
	}
	vehicles := []model.Vehicle{{ID: "v1", Capacity: 6}, {ID: "v2", Capacity: 6}}

	run := func() *Assignment {
		p := testProblem(t, locs, vehicles)
		a, _, err := Solve(p, shortOpts(42))
		if err != nil {
			t.Fatalf("solve: %v", err)
		}
		return a
	}
	a1, a2 := run(), run()
	if !reflect.DeepEqual(a1.Routes, a2.Routes) {
		t.Fatalf("routes differ for identical seed:\n%v\n%v", a1.Routes, a2.Routes)
	}
	if !reflect.DeepEqual(a1.Times, a2.Times) {
		t.Fatal("times differ for identical seed")
	}
	if !reflect.DeepEqual(a1.Dropped, a2.Dropped) {
		t.Fatal("dropped differ for identical seed")
	}
	if a1.Cost != a2.Cost {
		t.Fatalf("costs differ: %d vs %d", a1.Cost, a2.Cost)
	}
}

func TestSolveLongerBudgetNotWorse(t *testing.T) {
	locs := []model.Location{
		{Name: "depot", Window: wideWindow()},
		{Name: "a", Demand: 2, Window: wideWindow()},
		{Name: "b", Demand: 3, Window: wideWindow()},
		{Name: "c", Demand: 2, Window: wideWindow()},
		{Name: "d", Demand: 4, Window: wideWindow()},
		{Name: "e", Demand: 1, Window: wideWindow()},
	}
	vehicles := []model.Vehicle{{ID: "v1", Capacity: 7}, {ID: "v2", Capacity: 7}}

	p1 := testProblem(t, locs, vehicles)
	short, _, err := Solve(p1, Options{MaxSearchTime: 30 * time.Millisecond, Seed: 7})
	if err != nil {
		t.Fatalf("short solve: %v", err)
	}
	p2 := testProblem(t, locs, vehicles)
	long, _, err := Solve(p2, Options{MaxSearchTime: 300 * time.Millisecond, Seed: 7})
	if err != nil {
		t.Fatalf("long solve: %v", err)
	}
	if long.Cost > short.Cost {
		t.Fatalf("longer budget worsened cost: %d > %d", long.Cost, short.Cost)
	}
}

func TestNormalizeStartDelaysDeparture(t *testing.T) {
	locs := []model.Location{
		{Name: "depot", Window: wideWindow()},
		{Name: "a", Demand: 1, ServiceMin: 5, Window: model.TimeWindow{Start: 100, End: 200}},
	}
	p := testProblem(t, locs, []model.Vehicle{{ID: "v1", Capacity: 10}})

	start, times, end := p.normalizeStart([]int{1})
	// earliest departure arrives at t=10 and waits 90 minutes; the start is
	// pushed to 90 so the wait disappears while the return time holds
	if start != 90 {
		t.Fatalf("start: got %d, want 90", start)
	}
	if len(times) != 1 || times[0] != 100 {
		t.Fatalf("arrival: got %v, want [100]", times)
	}
	if end != 115 {
		t.Fatalf("return: got %d, want 115", end)
	}
}

func TestNormalizeStartBoundedByLaterWindows(t *testing.T) {
	// waiting happens at the first stop but the second stop's window closes
	// soon after arrival, limiting how far the departure can slide
	locs := []model.Location{
		{Name: "depot", Window: wideWindow()},
		{Name: "a", Demand: 1, Window: model.TimeWindow{Start: 100, End: 400}},
		{Name: "b", Demand: 1, Window: model.TimeWindow{Start: 0, End: 130}},
	}
	p := testProblem(t, locs, []model.Vehicle{{ID: "v1", Capacity: 10}})

	// earliest schedule: leave 0, arrive a at 10, wait to 100, arrive b at
	// 110. wait is 90 but b's slack is only 90+130-110 = 110... a's slack is
	// 90+400-100 = 390. delay = min(90, 390, 110) = 90.
	start, times, end := p.normalizeStart([]int{1, 2})
	if start != 90 {
		t.Fatalf("start: got %d, want 90", start)
	}
	if !reflect.DeepEqual(times, []int{100, 110}) {
		t.Fatalf("times: got %v, want [100 110]", times)
	}
	if end != 120 {
		t.Fatalf("end: got %d, want 120", end)
	}

	// verify the normalized schedule is still window-feasible
	for k, node := range []int{1, 2} {
		w := p.Locations[node].Window
		if times[k] < w.Start || times[k] > w.End {
			t.Fatalf("stop %d arrival %d outside [%d,%d]", node, times[k], w.Start, w.End)
		}
	}
}

func TestScheduleRejectsLateArrival(t *testing.T) {
	locs := []model.Location{
		{Name: "depot", Window: wideWindow()},
		{Name: "a", Demand: 1, Window: model.TimeWindow{Start: 0, End: 5}},
	}
	p := testProblem(t, locs, []model.Vehicle{{ID: "v1", Capacity: 10}})
	if _, _, ok := p.schedule([]int{1}); ok {
		t.Fatal("arrival at 10 must violate window ending at 5")
	}
}

func TestScheduleRejectsShiftOverrun(t *testing.T) {
	locs := []model.Location{
		{Name: "depot", Window: model.TimeWindow{Start: 0, End: 15}},
		{Name: "a", Demand: 1, Window: wideWindow()},
	}
	p := testProblem(t, locs, []model.Vehicle{{ID: "v1", Capacity: 10}})
	// out 10, back 10: return at 20 is past the depot close at 15
	if _, _, ok := p.schedule([]int{1}); ok {
		t.Fatal("return after depot close must be rejected")
	}
}

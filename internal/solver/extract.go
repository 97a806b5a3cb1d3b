package solver

import (
	"fmt"
	"sort"

	"routeopt/internal/model"
)

// Extract converts a raw assignment into the normalized per-route solution
// and checks the engine's own invariants on the way out. Vehicles that leave
// the depot and immediately return are skipped, not emitted as zero-length
// routes.
func Extract(p *Problem, a *Assignment) (*model.Solution, error) {
	if a == nil {
		return nil, ErrInfeasible
	}
	if len(a.Routes) != len(p.Vehicles) || len(a.Times) != len(p.Vehicles) {
		return nil, &SolverFault{Detail: fmt.Sprintf("assignment has %d routes for %d vehicles", len(a.Routes), len(p.Vehicles))}
	}

	sol := &model.Solution{Routes: []model.Route{}, Dropped: []model.DroppedStop{}}
	for v, seq := range a.Routes {
		if len(seq) <= 2 {
			continue // unused vehicle
		}
		times := a.Times[v]
		if len(times) != len(seq) {
			return nil, &SolverFault{Detail: fmt.Sprintf("vehicle %s: %d stops but %d time values", p.Vehicles[v].ID, len(seq), len(times))}
		}
		if seq[0] != 0 || seq[len(seq)-1] != 0 {
			return nil, &SolverFault{Detail: fmt.Sprintf("vehicle %s: route does not start and end at the depot", p.Vehicles[v].ID)}
		}

		distM := 0
		load := 0
		for k := 1; k < len(seq); k++ {
			distM += p.DistM[seq[k-1]][seq[k]]
			if times[k] < times[k-1] {
				return nil, &SolverFault{Detail: fmt.Sprintf("vehicle %s: cumulative time decreases at position %d", p.Vehicles[v].ID, k)}
			}
		}
		for k := 1; k < len(seq)-1; k++ {
			node := seq[k]
			w := p.Locations[node].Window
			if times[k] < w.Start || times[k] > w.End {
				return nil, &SolverFault{Detail: fmt.Sprintf("vehicle %s: stop %d arrival %d outside window [%d,%d]", p.Vehicles[v].ID, node, times[k], w.Start, w.End)}
			}
			load += p.Locations[node].Demand
		}
		if load > p.Vehicles[v].Capacity {
			return nil, &SolverFault{Detail: fmt.Sprintf("vehicle %s: load %d exceeds capacity %d", p.Vehicles[v].ID, load, p.Vehicles[v].Capacity)}
		}

		sol.Routes = append(sol.Routes, model.Route{
			VehicleID:    p.Vehicles[v].ID,
			VehicleName:  p.Vehicles[v].Name,
			Stops:        append([]int(nil), seq...),
			ArrivalsMin:  append([]int(nil), times...),
			DistanceM:    distM,
			DurationMin:  times[len(times)-1] - times[0],
			CapacityUsed: load,
		})
		sol.TotalDistanceM += distM
	}
	sol.VehiclesUsed = len(sol.Routes)

	for _, n := range p.Unservable {
		sol.Dropped = append(sol.Dropped, model.DroppedStop{Index: n, Name: p.Locations[n].Name, Reason: model.DropReasonDemand})
	}
	for _, n := range a.Dropped {
		sol.Dropped = append(sol.Dropped, model.DroppedStop{Index: n, Name: p.Locations[n].Name, Reason: model.DropReasonUnrouted})
	}
	sort.Slice(sol.Dropped, func(i, j int) bool { return sol.Dropped[i].Index < sol.Dropped[j].Index })
	return sol, nil
}

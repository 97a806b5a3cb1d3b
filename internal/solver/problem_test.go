package solver

import (
	"errors"
	"strings"
	"testing"

	"routeopt/internal/matrix"
	"routeopt/internal/model"
)

func uniformMatrices(n, travelMin, distM int) *matrix.Matrices {
	tm := make([][]int, n)
	dm := make([][]int, n)
	for i := 0; i < n; i++ {
		tm[i] = make([]int, n)
		dm[i] = make([]int, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			tm[i][j] = travelMin
			dm[i][j] = distM
		}
	}
	return &matrix.Matrices{TimeMin: tm, DistM: dm, Source: matrix.SourceHaversine}
}

func wideWindow() model.TimeWindow { return model.TimeWindow{Start: 0, End: 1440} }

func testProblem(t *testing.T, locs []model.Location, vehicles []model.Vehicle) *Problem {
	t.Helper()
	p, err := NewProblem(locs, vehicles, uniformMatrices(len(locs), 10, 5000), 0)
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	return p
}

func TestNewProblemValidation(t *testing.T) {
	depot := model.Location{ID: 0, Name: "depot", Window: wideWindow()}
	stop := model.Location{ID: 1, Name: "a", Demand: 1, Window: wideWindow()}
	veh := model.Vehicle{ID: "v1", Capacity: 10}

	cases := []struct {
		name     string
		locs     []model.Location
		vehicles []model.Vehicle
		m        *matrix.Matrices
		penalty  int
		want     string
	}{
		{"no locations", nil, []model.Vehicle{veh}, uniformMatrices(0, 1, 1), 0, "no locations"},
		{"no vehicles", []model.Location{depot, stop}, nil, uniformMatrices(2, 1, 1), 0, "no vehicles"},
		{"matrix mismatch", []model.Location{depot, stop}, []model.Vehicle{veh}, uniformMatrices(3, 1, 1), 0, "matrix dimension"},
		{"bad capacity", []model.Location{depot, stop}, []model.Vehicle{{ID: "v1", Capacity: 0}}, uniformMatrices(2, 1, 1), 0, "capacity"},
		{"inverted window", []model.Location{depot, {ID: 1, Name: "a", Window: model.TimeWindow{Start: 200, End: 100}}}, []model.Vehicle{veh}, uniformMatrices(2, 1, 1), 0, "window start after end"},
		{"window past horizon", []model.Location{depot, {ID: 1, Name: "a", Window: model.TimeWindow{Start: 0, End: 2000}}}, []model.Vehicle{veh}, uniformMatrices(2, 1, 1), 0, "horizon"},
		{"negative penalty", []model.Location{depot, stop}, []model.Vehicle{veh}, uniformMatrices(2, 1, 1), -5, "dropPenalty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProblem(tc.locs, tc.vehicles, tc.m, tc.penalty)
			if err == nil {
				t.Fatal("want validation error")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want *ValidationError, got %T: %v", err, err)
			}
			if !strings.Contains(ve.Reason, tc.want) {
				t.Fatalf("reason %q does not mention %q", ve.Reason, tc.want)
			}
		})
	}
}

func TestNewProblemDefaultPenalty(t *testing.T) {
	p := testProblem(t,
		[]model.Location{{Name: "depot", Window: wideWindow()}, {Name: "a", Demand: 1, Window: wideWindow()}},
		[]model.Vehicle{{ID: "v1", Capacity: 10}},
	)
	if p.DropPenalty != DefaultDropPenalty {
		t.Fatalf("drop penalty: got %d, want %d", p.DropPenalty, DefaultDropPenalty)
	}
}

func TestNewProblemUnservablePartition(t *testing.T) {
	p := testProblem(t,
		[]model.Location{
			{Name: "depot", Window: wideWindow()},
			{Name: "small", Demand: 3, Window: wideWindow()},
			{Name: "huge", Demand: 50, Window: wideWindow()},
			{Name: "edge", Demand: 12, Window: wideWindow()},
		},
		[]model.Vehicle{{ID: "v1", Capacity: 9}, {ID: "v2", Capacity: 12}},
	)
	if len(p.Unservable) != 1 || p.Unservable[0] != 2 {
		t.Fatalf("unservable: got %v, want [2]", p.Unservable)
	}
	if len(p.servable) != 2 {
		t.Fatalf("servable: got %v", p.servable)
	}
}

func TestTransitChargesOriginService(t *testing.T) {
	locs := []model.Location{
		{Name: "depot", Window: wideWindow()},
		{Name: "a", Demand: 1, ServiceMin: 15, Window: wideWindow()},
	}
	p := testProblem(t, locs, []model.Vehicle{{ID: "v1", Capacity: 10}})
	if got := p.Transit(0, 1); got != 10 {
		t.Fatalf("depot->a: got %d, want 10 (depot has no service time)", got)
	}
	if got := p.Transit(1, 0); got != 25 {
		t.Fatalf("a->depot: got %d, want 25 (travel 10 + service 15)", got)
	}
}

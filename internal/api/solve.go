package api

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"routeopt/internal/metrics"
	"routeopt/internal/model"
	"routeopt/internal/solver"
	"routeopt/internal/webhooks"
)

// runSolve executes one optimization end to end: build matrices, run the
// search, extract and persist the solution, notify listeners. The returned
// error is either a *solver.ValidationError, solver.ErrInfeasible, or a
// *solver.SolverFault; handlers map those onto status codes.
func (s *Server) runSolve(ctx context.Context, req *model.SolveRequest) (*model.Solution, error) {
	vehicles, err := s.Data.SelectVehicles(req.VehicleIDs)
	if err != nil {
		return nil, &solver.ValidationError{Reason: err.Error()}
	}

	solveID := uuid.NewString()
	s.publish(ctx, solveID, webhooks.EventSolveStarted, map[string]any{
		"solutionId": solveID,
		"vehicles":   len(vehicles),
		"stops":      len(s.Data.Locations) - 1,
	})

	mats, err := s.Matrix.Build(ctx, s.Data.Locations)
	if err != nil {
		return nil, &solver.SolverFault{Detail: "matrix build: " + err.Error()}
	}

	prob, err := solver.NewProblem(s.Data.Locations, vehicles, mats, req.DropPenalty)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	asg, engMetrics, err := solver.Solve(prob, solver.Options{
		MaxSearchTime: time.Duration(req.MaxSearchTimeSec) * time.Second,
		Seed:          req.Seed,
	})
	if err != nil {
		if errors.Is(err, solver.ErrInfeasible) {
			metrics.Solves.WithLabelValues("infeasible").Inc()
			s.publish(ctx, solveID, webhooks.EventSolveInfeasible, map[string]any{"solutionId": solveID})
		}
		return nil, err
	}

	sol, err := solver.Extract(prob, asg)
	if err != nil {
		metrics.Solves.WithLabelValues("fault").Inc()
		return nil, err
	}
	sol.ID = solveID
	sol.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	sol.SearchTimeSec = req.MaxSearchTimeSec
	sol.MatrixSource = mats.Source

	if req.Geometry && s.Geo != nil {
		for i := range sol.Routes {
			sol.Routes[i].Geometry = s.Geo.Enrich(ctx, sol.Routes[i].Stops, s.Data.Locations)
		}
	}

	metrics.Solves.WithLabelValues("completed").Inc()
	metrics.SolveDuration.Observe(time.Since(started).Seconds())
	metrics.DroppedStops.Observe(float64(len(sol.Dropped)))
	solver.RecordMetrics(solveID, engMetrics)
	if err := s.Store.SaveSolveMetrics(ctx, solveID, map[string]any{
		"iterations":    engMetrics.Iterations,
		"improvements":  engMetrics.Improvements,
		"localOptima":   engMetrics.LocalOptima,
		"penalizedArcs": engMetrics.PenalizedArcs,
		"bestCost":      engMetrics.BestCost,
		"finalCost":     engMetrics.FinalCost,
		"elapsedMs":     engMetrics.Elapsed.Milliseconds(),
	}); err != nil {
		log.Printf("save solve metrics: %v", err)
	}
	if err := s.Store.SaveSolution(ctx, sol); err != nil {
		return nil, &solver.SolverFault{Detail: "save solution: " + err.Error()}
	}

	s.publish(ctx, solveID, webhooks.EventSolveCompleted, map[string]any{
		"solutionId":     solveID,
		"vehiclesUsed":   sol.VehiclesUsed,
		"dropped":        len(sol.Dropped),
		"totalDistanceM": sol.TotalDistanceM,
	})
	return sol, nil
}

// publish fans an event out both to webhook subscribers and live listeners.
// Every event also lands on the "*" key so clients can watch solves whose
// IDs they do not know yet.
func (s *Server) publish(ctx context.Context, solveID, eventType string, data map[string]any) {
	s.Pub.Emit(ctx, eventType, data)
	evt := SSEEvent{Type: eventType, Data: data}
	s.Broker.Publish(solveID, evt)
	s.Broker.Publish("*", evt)
}

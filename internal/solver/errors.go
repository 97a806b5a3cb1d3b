package solver

import "errors"

// ValidationError reports malformed solve input. The search engine is never
// invoked when construction of the Problem fails this way.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// ErrInfeasible signals that search finished without any usable assignment.
// It is an outcome, not a crash: the caller reports "no solution".
var ErrInfeasible = errors.New("no feasible solution")

// SolverFault reports an internal invariant violation detected after search,
// e.g. an extracted arrival outside its window. It indicates a contract bug
// in the engine, not a data problem.
type SolverFault struct {
	Detail string
}

func (e *SolverFault) Error() string { return "solver fault: " + e.Detail }

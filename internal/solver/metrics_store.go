package solver

import "sync"

var (
	mu    sync.Mutex
	store = map[string]Metrics{}
)

// RecordMetrics keeps the engine metrics of a finished solve in memory,
// keyed by solution ID, for the admin endpoint.
func RecordMetrics(solutionID string, m Metrics) {
	mu.Lock()
	store[solutionID] = m
	mu.Unlock()
}

// GetMetrics returns the metrics of one solve.
func GetMetrics(solutionID string) (Metrics, bool) {
	mu.Lock()
	defer mu.Unlock()
	m, ok := store[solutionID]
	return m, ok
}

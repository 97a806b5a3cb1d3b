package matrix

// Matrices carries the pairwise travel time and distance tables for an
// ordered location list. TimeMin is whole minutes with every off-diagonal
// entry >= 1; DistM is whole meters; both diagonals are zero. The two tables
// always come from the same source, never mixed.
type Matrices struct {
	TimeMin [][]int `json:"timeMin"`
	DistM   [][]int `json:"distM"`
	Source  string  `json:"source"`
}

// Matrix sources.
const (
	SourceOSRM      = "osrm"
	SourceHaversine = "haversine"
)

// Dim returns the matrix dimension.
func (m *Matrices) Dim() int { return len(m.TimeMin) }

package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"routeopt/internal/model"
)

// OSRMClient fetches pairwise travel tables from an OSRM table endpoint in a
// single batch call.
type OSRMClient struct {
	baseURL    string
	httpClient *http.Client
}

type osrmTableResponse struct {
	Code      string      `json:"code"`
	Durations [][]float64 `json:"durations"`
	Distances [][]float64 `json:"distances"`
}

// NewOSRMClient creates a table client. baseURL defaults to the public OSRM
// demo server when empty.
func NewOSRMClient(baseURL string) *OSRMClient {
	if baseURL == "" {
		baseURL = "https://router.project-osrm.org"
	}
	return &OSRMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Table requests durations and distances for all location pairs. Durations
// arrive in seconds and are rounded down to whole minutes with a 1-minute
// floor off the diagonal; distances are truncated to whole meters.
func (c *OSRMClient) Table(ctx context.Context, locs []model.Location) (*Matrices, error) {
	n := len(locs)
	if n == 0 {
		return nil, fmt.Errorf("osrm table: no locations")
	}

	coords := make([]string, n)
	for i, loc := range locs {
		coords[i] = fmt.Sprintf("%.6f,%.6f", loc.Lng, loc.Lat)
	}
	queryURL := fmt.Sprintf("%s/table/v1/driving/%s?annotations=duration,distance", c.baseURL, strings.Join(coords, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("osrm table: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("osrm table: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("osrm table: decode response: %w", err)
	}
	if tr.Code != "Ok" {
		return nil, fmt.Errorf("osrm table: service code %q", tr.Code)
	}
	if len(tr.Durations) != n || len(tr.Distances) != n {
		return nil, fmt.Errorf("osrm table: expected %d rows, got durations=%d distances=%d", n, len(tr.Durations), len(tr.Distances))
	}

	timeMin := make([][]int, n)
	distM := make([][]int, n)
	for i := 0; i < n; i++ {
		if len(tr.Durations[i]) != n || len(tr.Distances[i]) != n {
			return nil, fmt.Errorf("osrm table: row %d has wrong length", i)
		}
		timeMin[i] = make([]int, n)
		distM[i] = make([]int, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			mins := int(tr.Durations[i][j] / 60)
			if mins < 1 {
				mins = 1
			}
			timeMin[i][j] = mins
			distM[i][j] = int(tr.Distances[i][j])
		}
	}
	return &Matrices{TimeMin: timeMin, DistM: distM, Source: SourceOSRM}, nil
}

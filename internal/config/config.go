package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"routeopt/internal/model"
)

// Dataset is the static plan input: the depot plus delivery stops (index 0
// is the depot) and the fleet available for selection. It is loaded once at
// process start and treated as immutable afterwards.
type Dataset struct {
	Locations []model.Location `yaml:"locations"`
	Fleet     []model.Vehicle  `yaml:"fleet"`
}

// Load reads and validates a plan dataset from a YAML file.
func Load(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan dataset: %w", err)
	}
	var d Dataset
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse plan dataset: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks structural invariants of the dataset.
func (d *Dataset) Validate() error {
	if len(d.Locations) == 0 {
		return fmt.Errorf("plan dataset: no locations (index 0 must be the depot)")
	}
	for i, loc := range d.Locations {
		if loc.Window.Start > loc.Window.End {
			return fmt.Errorf("plan dataset: location %d (%s): window start %d > end %d", i, loc.Name, loc.Window.Start, loc.Window.End)
		}
		if loc.Demand < 0 {
			return fmt.Errorf("plan dataset: location %d (%s): negative demand", i, loc.Name)
		}
		if loc.ServiceMin < 0 {
			return fmt.Errorf("plan dataset: location %d (%s): negative service time", i, loc.Name)
		}
	}
	// Depot demand and service time are ignored by the solver; force them to
	// zero so the dataset cannot disagree with the cost model.
	d.Locations[0].Demand = 0
	d.Locations[0].ServiceMin = 0
	seen := map[string]bool{}
	for _, v := range d.Fleet {
		if v.ID == "" {
			return fmt.Errorf("plan dataset: vehicle with empty id")
		}
		if seen[v.ID] {
			return fmt.Errorf("plan dataset: duplicate vehicle id %q", v.ID)
		}
		seen[v.ID] = true
		if v.Capacity <= 0 {
			return fmt.Errorf("plan dataset: vehicle %s: capacity must be > 0", v.ID)
		}
	}
	return nil
}

// SelectVehicles resolves fleet IDs to vehicles, in request order.
func (d *Dataset) SelectVehicles(ids []string) ([]model.Vehicle, error) {
	byID := make(map[string]model.Vehicle, len(d.Fleet))
	for _, v := range d.Fleet {
		byID[v.ID] = v
	}
	out := make([]model.Vehicle, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown vehicle id %q", id)
		}
		out = append(out, v)
	}
	return out, nil
}

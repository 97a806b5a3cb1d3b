package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"routeopt/internal/model"
)

const samplePlan = `
locations:
  - id: 0
    name: Depot
    lat: 55.43
    lng: 37.54
    demand: 7
    serviceMin: 30
    window: { start: 480, end: 1200 }
  - id: 1
    name: Store A
    lat: 55.80
    lng: 37.53
    demand: 4
    serviceMin: 15
    window: { start: 540, end: 780 }
fleet:
  - id: veh-1
    name: Gazelle
    capacity: 9
  - id: veh-2
    name: Transit
    capacity: 12
`

func writePlan(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	return path
}

func TestLoadSamplePlan(t *testing.T) {
	d, err := Load(writePlan(t, samplePlan))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(d.Locations) != 2 || len(d.Fleet) != 2 {
		t.Fatalf("shape: %d locations, %d vehicles", len(d.Locations), len(d.Fleet))
	}
	// depot demand and service time are zeroed regardless of the file
	if d.Locations[0].Demand != 0 || d.Locations[0].ServiceMin != 0 {
		t.Fatalf("depot not normalized: %+v", d.Locations[0])
	}
	if d.Locations[1].Window != (model.TimeWindow{Start: 540, End: 780}) {
		t.Fatalf("window: %+v", d.Locations[1].Window)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("want error for missing file")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		edit func(*Dataset)
		want string
	}{
		{"no locations", func(d *Dataset) { d.Locations = nil }, "no locations"},
		{"inverted window", func(d *Dataset) { d.Locations[1].Window = model.TimeWindow{Start: 900, End: 800} }, "window"},
		{"negative demand", func(d *Dataset) { d.Locations[1].Demand = -1 }, "demand"},
		{"duplicate vehicle", func(d *Dataset) { d.Fleet[1].ID = d.Fleet[0].ID }, "duplicate"},
		{"zero capacity", func(d *Dataset) { d.Fleet[0].Capacity = 0 }, "capacity"},
		{"empty vehicle id", func(d *Dataset) { d.Fleet[0].ID = "" }, "empty id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Load(writePlan(t, samplePlan))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tc.edit(d)
			err = d.Validate()
			if err == nil {
				t.Fatal("want validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSelectVehicles(t *testing.T) {
	d, err := Load(writePlan(t, samplePlan))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := d.SelectVehicles([]string{"veh-2", "veh-1"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 2 || got[0].ID != "veh-2" || got[1].ID != "veh-1" {
		t.Fatalf("order not preserved: %+v", got)
	}
	if _, err := d.SelectVehicles([]string{"veh-9"}); err == nil {
		t.Fatal("want error for unknown vehicle id")
	}
}

package model

// Core domain types shared by the matrix builder, solver, and API layers.

// TimeWindow is a hard arrival window in minutes of day, Start <= End.
type TimeWindow struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Location is one geocoded point of the static plan dataset.
// Index 0 of the dataset is always the depot: its window is the operating
// shift and its demand and service time are zero.
type Location struct {
	ID         int        `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Lat        float64    `json:"lat" yaml:"lat"`
	Lng        float64    `json:"lng" yaml:"lng"`
	Demand     int        `json:"demand" yaml:"demand"`         // cubic meters
	ServiceMin int        `json:"serviceMin" yaml:"serviceMin"` // unload time at the stop
	Window     TimeWindow `json:"window" yaml:"window"`
}

// Vehicle is one unit of the static fleet.
type Vehicle struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Capacity int    `json:"capacity" yaml:"capacity"` // cubic meters, > 0
}

// LatLng is a geographic point in display order (lat first).
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SolveRequest selects a fleet subset and bounds the search.
type SolveRequest struct {
	VehicleIDs       []string `json:"vehicleIds"`
	MaxSearchTimeSec int      `json:"maxSearchTimeSec,omitempty"` // 1..60, default 10
	DropPenalty      int      `json:"dropPenalty,omitempty"`      // objective cost of skipping a stop
	Seed             int64    `json:"seed,omitempty"`
	Geometry         bool     `json:"geometry,omitempty"` // fetch road polylines for display
}

// Route is the normalized itinerary of one used vehicle.
// Stops starts and ends at the depot index; ArrivalsMin is parallel to Stops
// and non-decreasing; every intermediate arrival lies inside that location's
// window.
type Route struct {
	VehicleID    string     `json:"vehicleId"`
	VehicleName  string     `json:"vehicleName"`
	Stops        []int      `json:"stops"`
	ArrivalsMin  []int      `json:"arrivalsMin"`
	DistanceM    int        `json:"distanceM"`
	DurationMin  int        `json:"durationMin"`
	CapacityUsed int        `json:"capacityUsed"`
	Geometry     [][]LatLng `json:"geometry,omitempty"` // one polyline per leg
}

// Reasons a location ends up outside every route.
const (
	DropReasonDemand   = "demand"   // demand exceeds every selected vehicle's capacity
	DropReasonUnrouted = "unrouted" // dropped by the penalty mechanism during search
)

// DroppedStop names a location served by no route.
type DroppedStop struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Solution is the immutable output of one solve. Every non-depot location
// appears exactly once: either in one route's Stops or in Dropped.
type Solution struct {
	ID             string        `json:"id"`
	CreatedAt      string        `json:"createdAt"`
	Routes         []Route       `json:"routes"`
	Dropped        []DroppedStop `json:"dropped"`
	TotalDistanceM int           `json:"totalDistanceM"`
	VehiclesUsed   int           `json:"vehiclesUsed"`
	SearchTimeSec  int           `json:"searchTimeSec"`
	MatrixSource   string        `json:"matrixSource"` // "osrm" or "haversine"
}

// SubscriptionRequest registers a webhook endpoint for solve events.
type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

// Subscription is a stored webhook registration.
type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}

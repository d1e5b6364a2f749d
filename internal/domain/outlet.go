package domain

// Outlet is a physical retail location. Reference data maintained by an
// external ingestion process; read-only here.
type Outlet struct {
	ID      int64
	Name    string
	Lat     float64 // [-90, 90]
	Lng     float64 // [-180, 180]
	Address string
	City    string
	Phone   string
}

// OutletDistance pairs an outlet with its great-circle distance from a
// query coordinate.
type OutletDistance struct {
	Outlet     Outlet
	DistanceKM float64
}

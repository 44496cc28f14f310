// Package telematics defines the contract between the poller and the vehicle
// vendor API, and the closed set of failure kinds the vendor can produce.
package telematics

import (
	"context"
	"time"
)

// Client is the vendor API as seen by the poller.
type Client interface {
	// RefreshToken renews the session if needed. It does not count against
	// the heavy request budget.
	RefreshToken(ctx context.Context) error

	// UpdateCachedState asks the vendor for its cached copy of the vehicle.
	UpdateCachedState(ctx context.Context, vehicleID string) error

	// ForceRefreshState makes the vendor wake the vehicle and fetch live
	// data. Counts against the heavy request budget.
	ForceRefreshState(ctx context.Context, vehicleID string) error

	// GetVehicle returns the adapter's current view of the vehicle, or nil
	// with a nil error when no state is held.
	GetVehicle(ctx context.Context, vehicleID string) (*VehicleState, error)
}

// VehicleState is the adapter's view of one vehicle.
type VehicleState struct {
	BatteryPercentage float64
	Odometer          float64
	DrivingRange      float64

	// BatteryHealth is the state-of-health percentage; nil when not reported.
	BatteryHealth *float64

	Longitude *float64
	Latitude  *float64

	// LastUpdatedAt is the vendor's timestamp for this state, in UTC.
	LastUpdatedAt time.Time
}

// OlderThan reports whether the state was last updated before threshold.
func (v *VehicleState) OlderThan(threshold time.Time) bool {
	return v.LastUpdatedAt.Before(threshold)
}

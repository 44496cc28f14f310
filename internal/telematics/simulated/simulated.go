// Package simulated provides an in-process vehicle for development and demos.
// It drives slowly: every vendor update moves the odometer forward and
// drains the battery, and it recharges once the level falls below 20%.
package simulated

import (
	"context"
	"math"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"visioniq.io/visioniq/internal/telematics"
	"visioniq.io/visioniq/pkg/log"
)

const (
	kmPerUpdate      = 7.5
	rangePerPercent  = 4.2
	drainPerUpdate   = 1.5
	rechargeFloor    = 20.0
	rechargeTarget   = 90.0
	batteryHealthSOH = 96.0
)

var _ telematics.Client = (*Vehicle)(nil)

// Vehicle is a simulated telematics client for one vehicle id.
type Vehicle struct {
	id         string
	clock      clock.PassiveClock
	staleAfter time.Duration
	logger     log.Logger

	mu      sync.Mutex
	charge  float64
	odo     float64
	lat     float64
	lon     float64
	updates int
	cached  *telematics.VehicleState
}

// New returns a simulated vehicle. staleAfter makes every cached update
// report a last-updated time that far in the past.
func New(vehicleID string, clk clock.PassiveClock, staleAfter time.Duration) *Vehicle {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Vehicle{
		id:         vehicleID,
		clock:      clk,
		staleAfter: staleAfter,
		logger:     log.WithName("telematics.simulated").WithValues("vehicleID", vehicleID),
		charge:     80,
		odo:        12000,
		lat:        37.5665,
		lon:        126.9780,
	}
}

func (v *Vehicle) RefreshToken(ctx context.Context) error {
	return ctx.Err()
}

func (v *Vehicle) UpdateCachedState(ctx context.Context, vehicleID string) error {
	if err := v.check(ctx, vehicleID, telematics.OpUpdateCachedState); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.advance()
	v.cached = v.snapshot(v.clock.Now().UTC().Add(-v.staleAfter))
	v.logger.Debug("Cached state updated", "lastUpdatedAt", v.cached.LastUpdatedAt)
	return nil
}

func (v *Vehicle) ForceRefreshState(ctx context.Context, vehicleID string) error {
	if err := v.check(ctx, vehicleID, telematics.OpForceRefreshState); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.advance()
	v.cached = v.snapshot(v.clock.Now().UTC())
	v.logger.Debug("Live state fetched", "lastUpdatedAt", v.cached.LastUpdatedAt)
	return nil
}

func (v *Vehicle) GetVehicle(ctx context.Context, vehicleID string) (*telematics.VehicleState, error) {
	if err := v.check(ctx, vehicleID, telematics.OpGetVehicle); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cached == nil {
		return nil, nil
	}
	cp := *v.cached
	return &cp, nil
}

func (v *Vehicle) check(ctx context.Context, vehicleID string, op telematics.Op) error {
	if err := ctx.Err(); err != nil {
		return telematics.NewError(telematics.KindRequestTimeout, op, err)
	}
	if vehicleID != v.id {
		return telematics.Errorf(telematics.KindKeyLookup, op, "unknown vehicle %q", vehicleID)
	}
	return nil
}

// advance moves the simulation one step. Caller holds mu.
func (v *Vehicle) advance() {
	v.updates++
	v.odo += kmPerUpdate
	v.charge -= drainPerUpdate
	if v.charge < rechargeFloor {
		v.charge = rechargeTarget
	}

	// Wander around the starting point on a small circle.
	angle := float64(v.updates) * math.Pi / 12
	v.lat = 37.5665 + 0.01*math.Sin(angle)
	v.lon = 126.9780 + 0.01*math.Cos(angle)
}

func (v *Vehicle) snapshot(at time.Time) *telematics.VehicleState {
	soh := batteryHealthSOH
	lat, lon := v.lat, v.lon
	return &telematics.VehicleState{
		BatteryPercentage: v.charge,
		Odometer:          v.odo,
		DrivingRange:      math.Round(v.charge * rangePerPercent),
		BatteryHealth:     &soh,
		Latitude:          &lat,
		Longitude:         &lon,
		LastUpdatedAt:     at,
	}
}

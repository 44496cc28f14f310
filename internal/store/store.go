// Package store persists vehicle samples to an append-only log.
package store

import (
	"fmt"
	"time"
)

// Sample is one timestamped vehicle observation. Samples are never updated
// once appended.
type Sample struct {
	// Timestamp is in UTC. A zero value means the stored timestamp could not
	// be parsed.
	Timestamp time.Time

	ChargingLevel float64
	Mileage       float64
	BatteryHealth float64
	DrivingRange  float64

	// Location is nil when either coordinate is absent.
	Location *Location
}

// Location is a WGS84 coordinate.
type Location struct {
	Longitude float64
	Latitude  float64
}

func (s Sample) String() string {
	loc := "unknown"
	if s.Location != nil {
		loc = fmt.Sprintf("long: %v, lat: %v", s.Location.Longitude, s.Location.Latitude)
	}
	return fmt.Sprintf("%s, Charging Level: %v%%, Mileage: %v miles, Battery Health: %v%%, EV Driving Range: %v miles, %s",
		FormatTimestamp(s.Timestamp), s.ChargingLevel, s.Mileage, s.BatteryHealth, s.DrivingRange, loc)
}

// Store is the durable sample log.
type Store interface {
	// Append adds one sample to the end of the log.
	Append(s Sample) error

	// ReadAll returns every sample in log order. A missing log is empty.
	ReadAll() ([]Sample, error)
}

// Package poller drives periodic acquisition of vehicle state within the
// vendor's daily request budget.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"visioniq.io/visioniq/internal/metrics"
	"visioniq.io/visioniq/internal/store"
	"visioniq.io/visioniq/internal/telematics"
	"visioniq.io/visioniq/pkg/log"
)

const secondsPerDay = 86400

// ErrNotAvailable is returned by PollOnce when no vehicle state could be
// obtained, even after a forced refresh.
var ErrNotAvailable = errors.New("vehicle data not available")

// Recorder receives published values and poller health. *metrics.Publisher
// implements it.
type Recorder interface {
	Publish(s metrics.Snapshot)
	ObserveCycle(result string)
	ObserveFailure(kind, op string)
	ObserveForcedRefresh()
	SetLastSample(t time.Time)
	SetPhase(phase string)
}

// Sink receives every recorded sample after it has been stored.
type Sink interface {
	Name() string
	Record(ctx context.Context, vehicleID string, s store.Sample) error
}

// Config holds the collaborators of a Scheduler.
type Config struct {
	Client    telematics.Client
	VehicleID string

	// Interval is the minimum spacing between cycle starts, see Interval.
	Interval time.Duration

	Store    store.Store
	Recorder Recorder
	Sinks    []Sink

	// Clock defaults to the real clock.
	Clock  clock.Clock
	Logger log.Logger
}

// Scheduler runs poll cycles.
type Scheduler struct {
	client    telematics.Client
	vehicleID string
	interval  time.Duration
	store     store.Store
	recorder  Recorder
	sinks     []Sink
	clock     clock.Clock
	logger    log.Logger
}

// Interval converts a requests-per-day budget into the spacing between cycles.
func Interval(requestsPerDay int) (time.Duration, error) {
	if requestsPerDay < 1 || requestsPerDay > secondsPerDay {
		return 0, fmt.Errorf("requests per day must be between 1 and %d, got %d", secondsPerDay, requestsPerDay)
	}
	return time.Duration(secondsPerDay/requestsPerDay) * time.Second, nil
}

// NextTarget returns the first minute boundary at or after now+interval.
func NextTarget(now time.Time, interval time.Duration) time.Time {
	t := now.Add(interval)
	aligned := t.Truncate(time.Minute)
	if aligned.Before(t) {
		aligned = aligned.Add(time.Minute)
	}
	return aligned
}

// New checks cfg and returns a scheduler.
func New(cfg Config) (*Scheduler, error) {
	switch {
	case cfg.Client == nil:
		return nil, errors.New("poller: telematics client is required")
	case cfg.Store == nil:
		return nil, errors.New("poller: store is required")
	case cfg.VehicleID == "":
		return nil, errors.New("poller: vehicle id is required")
	case cfg.Interval <= 0:
		return nil, fmt.Errorf("poller: interval must be positive, got %s", cfg.Interval)
	}

	s := &Scheduler{
		client:    cfg.Client,
		vehicleID: cfg.VehicleID,
		interval:  cfg.Interval,
		store:     cfg.Store,
		recorder:  cfg.Recorder,
		sinks:     cfg.Sinks,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
	if s.recorder == nil {
		s.recorder = metrics.New()
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.logger == nil {
		s.logger = log.WithName("poller").WithValues("vehicleID", cfg.VehicleID)
	}
	return s, nil
}

// Run polls until ctx is cancelled. Cycle starts are at least one interval
// apart. Polling failures never end the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Poller started", "interval", s.interval)
	defer s.logger.Info("Poller stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		next := NextTarget(s.clock.Now(), s.interval)
		_, _ = s.PollOnce(ctx)

		remaining := next.Sub(s.clock.Now())
		if remaining <= 0 {
			continue
		}
		s.logger.Debug("Waiting for next cycle", "next", next.UTC(), "remaining", remaining)

		timer := s.clock.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C():
		}
	}
}

// PollOnce runs a single cycle. It returns ErrNotAvailable when the vehicle
// could not be read, and a store error when the sample was published but not
// persisted.
func (s *Scheduler) PollOnce(ctx context.Context) (sample store.Sample, err error) {
	m := newCycleMachine(s.recorder, s.logger)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll cycle panicked: %v", r)
			s.logger.Error(err, "Unexpected failure in poll cycle", "kind", telematics.KindUnclassified)
			s.recorder.ObserveFailure(string(telematics.KindUnclassified), "cycle")
			s.recorder.ObserveCycle(metrics.ResultSkipped)
			m.fire(ctx, EventSkip)
		}
		m.fire(ctx, EventFinish)
	}()

	m.fire(ctx, EventFetch)
	vehicle := s.fetch(ctx)

	threshold := s.clock.Now().UTC().Add(-s.interval)
	if vehicle == nil || vehicle.OlderThan(threshold) {
		if vehicle != nil {
			s.logger.Info("Cached state is stale, forcing refresh", "lastUpdatedAt", vehicle.LastUpdatedAt, "threshold", threshold)
		}
		m.fire(ctx, EventRefresh)
		vehicle = s.forceRefresh(ctx, threshold)
	}

	if vehicle == nil {
		s.logger.Warn("Vehicle data not available, skipping cycle")
		m.fire(ctx, EventSkip)
		s.recorder.ObserveCycle(metrics.ResultSkipped)
		return store.Sample{}, ErrNotAvailable
	}

	sample = newSample(s.clock.Now(), vehicle)
	m.fire(ctx, EventRecord, &sample)

	s.recorder.Publish(metrics.Snapshot{
		ChargingLevel: sample.ChargingLevel,
		Mileage:       sample.Mileage,
		BatteryHealth: sample.BatteryHealth,
		DrivingRange:  sample.DrivingRange,
	})

	if err = s.store.Append(sample); err != nil {
		s.logger.Error(err, "Failed to append sample to log")
		s.recorder.ObserveCycle(metrics.ResultUnstored)
		s.logger.Info(sample.String())
		return sample, fmt.Errorf("append sample: %w", err)
	}

	for _, sink := range s.sinks {
		if serr := sink.Record(ctx, s.vehicleID, sample); serr != nil {
			s.logger.Error(serr, "Sample sink failed", "sink", sink.Name())
		}
	}

	s.recorder.SetLastSample(sample.Timestamp)
	s.recorder.ObserveCycle(metrics.ResultRecorded)
	s.logger.Info(sample.String())
	return sample, nil
}

// fetch refreshes the session and the vendor's cached copy. Any failure
// leaves the vehicle absent.
func (s *Scheduler) fetch(ctx context.Context) *telematics.VehicleState {
	if err := s.client.RefreshToken(ctx); err != nil {
		s.failure(err, telematics.OpRefreshToken)
		return nil
	}
	if err := s.client.UpdateCachedState(ctx, s.vehicleID); err != nil {
		s.failure(err, telematics.OpUpdateCachedState)
		return nil
	}

	v, err := s.client.GetVehicle(ctx, s.vehicleID)
	if err != nil {
		s.failure(err, telematics.OpGetVehicle)
		return nil
	}
	return v
}

// forceRefresh performs the single live read of a cycle. It returns nil
// unless the re-read state is at least as recent as threshold.
func (s *Scheduler) forceRefresh(ctx context.Context, threshold time.Time) *telematics.VehicleState {
	s.recorder.ObserveForcedRefresh()

	if err := s.client.ForceRefreshState(ctx, s.vehicleID); err != nil {
		s.failure(err, telematics.OpForceRefreshState)
		return nil
	}

	v, err := s.client.GetVehicle(ctx, s.vehicleID)
	if err != nil {
		s.failure(err, telematics.OpGetVehicle)
		return nil
	}
	if v != nil && v.OlderThan(threshold) {
		s.logger.Warn("Refreshed state is still stale", "lastUpdatedAt", v.LastUpdatedAt, "threshold", threshold)
		return nil
	}
	return v
}

func (s *Scheduler) failure(err error, op telematics.Op) {
	kind := telematics.KindOf(err)

	var te *telematics.Error
	if errors.As(err, &te) && te.Op != "" {
		op = te.Op
	}

	s.logger.Error(err, "Vendor request failed", "kind", kind, "op", op)
	s.recorder.ObserveFailure(string(kind), string(op))
}

func newSample(now time.Time, v *telematics.VehicleState) store.Sample {
	sample := store.Sample{
		Timestamp:     now.UTC(),
		ChargingLevel: v.BatteryPercentage,
		Mileage:       v.Odometer,
		DrivingRange:  v.DrivingRange,
	}
	if v.BatteryHealth != nil {
		sample.BatteryHealth = *v.BatteryHealth
	}
	if v.Longitude != nil && v.Latitude != nil {
		sample.Location = &store.Location{Longitude: *v.Longitude, Latitude: *v.Latitude}
	}
	return sample
}

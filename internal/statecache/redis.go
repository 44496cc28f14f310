// Package statecache mirrors the latest recorded sample into Redis so other
// tools can read the current vehicle state without parsing the log.
package statecache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"visioniq.io/visioniq/internal/store"
	"visioniq.io/visioniq/pkg/options"
)

// GeoKey holds the last known position of every mirrored vehicle.
const GeoKey = "visioniq:geo"

// StateKey returns the hash key holding vehicleID's latest sample.
func StateKey(vehicleID string) string {
	return fmt.Sprintf("vehicle:%s:state", vehicleID)
}

type RedisMirror struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisMirror connects and pings the server.
func NewRedisMirror(ctx context.Context, opts *options.RedisOptions) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     2,
		MinIdleConns: 1,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, opts.TTL), nil
}

// NewWithClient wraps an existing client. A zero ttl keeps the state key
// until it is overwritten.
func NewWithClient(client redis.UniversalClient, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, ttl: ttl}
}

func (r *RedisMirror) Name() string { return "redis" }

func (r *RedisMirror) Close() error {
	return r.client.Close()
}

// Record overwrites the state hash and moves the vehicle on the geo index.
func (r *RedisMirror) Record(ctx context.Context, vehicleID string, s store.Sample) error {
	key := StateKey(vehicleID)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, stateFields(vehicleID, s))
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if s.Location != nil {
		pipe.GeoAdd(ctx, GeoKey, &redis.GeoLocation{
			Name:      vehicleID,
			Longitude: s.Location.Longitude,
			Latitude:  s.Location.Latitude,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

func stateFields(vehicleID string, s store.Sample) map[string]any {
	fields := map[string]any{
		"vehicle_id":       vehicleID,
		"timestamp":        s.Timestamp.Unix(),
		"charging_level":   s.ChargingLevel,
		"mileage":          s.Mileage,
		"battery_health":   s.BatteryHealth,
		"ev_driving_range": s.DrivingRange,
	}
	if s.Location != nil {
		fields["lng"] = s.Location.Longitude
		fields["lat"] = s.Location.Latitude
	}
	return fields
}

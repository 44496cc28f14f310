// Package monitor wires the poller, store, metrics, sinks and HTTP front
// end into a runnable process.
package monitor

import (
	"context"
	"fmt"

	"visioniq.io/visioniq/internal/metrics"
	"visioniq.io/visioniq/internal/notifier"
	"visioniq.io/visioniq/internal/poller"
	"visioniq.io/visioniq/internal/report"
	"visioniq.io/visioniq/internal/server"
	httpserver "visioniq.io/visioniq/internal/server/http"
	"visioniq.io/visioniq/internal/statecache"
	"visioniq.io/visioniq/internal/store"
	"visioniq.io/visioniq/internal/telematics"
	"visioniq.io/visioniq/internal/telematics/bridge"
	"visioniq.io/visioniq/internal/telematics/simulated"
	"visioniq.io/visioniq/pkg/log"
	"visioniq.io/visioniq/pkg/options"
)

// Config is the validated settings of every component.
type Config struct {
	VehicleOptions    *options.VehicleOptions
	PollOptions       *options.PollOptions
	StoreOptions      *options.StoreOptions
	TelematicsOptions *options.TelematicsOptions
	HttpOptions       *options.HttpOptions
	S3Options         *options.S3Options
	MqttOptions       *options.MqttOptions
	RedisOptions      *options.RedisOptions
}

// NewStore opens the sample log, wrapped with the archive mirror when an
// S3 endpoint is configured.
func (cfg *Config) NewStore(ctx context.Context) (store.Store, error) {
	csv := store.NewCSVStore(cfg.StoreOptions.Path)
	if !cfg.S3Options.Enabled() {
		return csv, nil
	}

	archiver, err := store.NewMinIOArchiver(cfg.S3Options)
	if err != nil {
		return nil, err
	}
	if err := archiver.CheckBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare archive bucket: %w", err)
	}
	return store.NewArchivingStore(csv, archiver), nil
}

// NewTelematicsClient builds the configured vendor adapter.
func (cfg *Config) NewTelematicsClient() (telematics.Client, error) {
	vo := cfg.VehicleOptions

	switch cfg.TelematicsOptions.Driver {
	case options.DriverSimulated:
		log.Warn("Using the simulated vehicle, recorded samples are synthetic", "driver", options.DriverSimulated, "logFile", cfg.StoreOptions.Path)
		return simulated.New(vo.VehicleID, nil, cfg.TelematicsOptions.StaleAfter), nil
	case options.DriverBridge:
		return bridge.New(bridge.Config{
			BaseURL: cfg.TelematicsOptions.BaseURL,
			Timeout: cfg.TelematicsOptions.Timeout,
			Credentials: bridge.Credentials{
				Username: vo.Username,
				Password: vo.Password,
				PIN:      vo.PIN,
				Region:   vo.RegionCode(),
				Brand:    vo.BrandCode(),
			},
		})
	default:
		return nil, fmt.Errorf("unknown telematics driver %q", cfg.TelematicsOptions.Driver)
	}
}

// NewMonitor builds every component. Connections to optional sinks are made
// here so a misconfigured sink fails startup.
func (cfg *Config) NewMonitor(ctx context.Context) (*Monitor, error) {
	st, err := cfg.NewStore(ctx)
	if err != nil {
		return nil, err
	}

	client, err := cfg.NewTelematicsClient()
	if err != nil {
		return nil, err
	}

	interval, err := poller.Interval(cfg.PollOptions.RequestsPerDay)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		store:          st,
		publisher:      metrics.New(),
		pollingEnabled: cfg.PollOptions.Enabled,
		interval:       interval,
		logger:         log.WithName("monitor"),
	}

	var sinks []poller.Sink
	if cfg.MqttOptions.Enabled() {
		n, err := notifier.NewMQTTNotifier(cfg.MqttOptions, cfg.VehicleOptions.VehicleID)
		if err != nil {
			return nil, fmt.Errorf("failed to init notifier: %w", err)
		}
		m.notifier = n
		sinks = append(sinks, n)
	}
	if cfg.RedisOptions.Enabled() {
		r, err := statecache.NewRedisMirror(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, err
		}
		m.mirror = r
		sinks = append(sinks, r)
	}

	m.scheduler, err = poller.New(poller.Config{
		Client:    client,
		VehicleID: cfg.VehicleOptions.VehicleID,
		Interval:  interval,
		Store:     st,
		Recorder:  m.publisher,
		Sinks:     sinks,
	})
	if err != nil {
		return nil, err
	}

	m.http = httpserver.NewServer(httpserver.Config{
		Options: cfg.HttpOptions,
		Metrics: m.publisher.Handler(),
		Reports: report.New(st),
		Ready:   m.ready,
	})

	m.manager = server.NewManager(m.http)
	if m.notifier != nil {
		m.manager.Add(m.notifier)
	}
	if m.pollingEnabled {
		m.manager.Add(server.RunnerFunc(m.scheduler.Run))
	}

	return m, nil
}

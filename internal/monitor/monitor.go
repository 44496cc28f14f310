package monitor

import (
	"context"
	"errors"
	"time"

	"visioniq.io/visioniq/internal/metrics"
	"visioniq.io/visioniq/internal/notifier"
	"visioniq.io/visioniq/internal/poller"
	"visioniq.io/visioniq/internal/server"
	httpserver "visioniq.io/visioniq/internal/server/http"
	"visioniq.io/visioniq/internal/statecache"
	"visioniq.io/visioniq/internal/store"
	"visioniq.io/visioniq/pkg/log"
)

// sinkConnectTimeout bounds how long a one-shot poll waits for the broker.
const sinkConnectTimeout = 10 * time.Second

// Monitor is the assembled process.
type Monitor struct {
	store          store.Store
	publisher      *metrics.Publisher
	scheduler      *poller.Scheduler
	http           *httpserver.Server
	manager        *server.Manager
	notifier       *notifier.MQTTNotifier
	mirror         *statecache.RedisMirror
	pollingEnabled bool
	interval       time.Duration
	logger         log.Logger
}

// Run serves HTTP, and polls when enabled, until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.close()

	if m.pollingEnabled {
		m.logger.Info("Polling enabled", "interval", m.interval)
	} else {
		m.logger.Info("Not updating.")
	}

	return m.manager.Start(ctx)
}

// PollOnce runs a single cycle outside the scheduler loop.
func (m *Monitor) PollOnce(ctx context.Context) (store.Sample, error) {
	defer m.close()

	if m.notifier != nil {
		if err := m.notifier.Connect(ctx); err != nil {
			return store.Sample{}, err
		}
		defer m.notifier.Close()

		waitCtx, cancel := context.WithTimeout(ctx, sinkConnectTimeout)
		if err := m.notifier.WaitOnline(waitCtx); err != nil {
			m.logger.Error(err, "Sample will not be published")
		}
		cancel()
	}

	return m.scheduler.PollOnce(ctx)
}

// ready fails while the sample log cannot be read.
func (m *Monitor) ready() error {
	if _, err := m.store.ReadAll(); err != nil {
		return errors.New("sample log unreadable")
	}
	return nil
}

func (m *Monitor) close() {
	if m.mirror != nil {
		if err := m.mirror.Close(); err != nil {
			m.logger.Error(err, "Failed to close redis client")
		}
	}
	_ = log.Sync()
}

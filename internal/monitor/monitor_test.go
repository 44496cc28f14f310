package monitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"visioniq.io/visioniq/pkg/options"
)

func testConfig(t *testing.T) *Config {
	t.Helper()

	vo := options.NewVehicleOptions()
	vo.Username, vo.Password, vo.PIN = "driver", "pw", "1234"
	vo.Region, vo.Brand, vo.VehicleID = "3", "2", "KMHC8"

	so := options.NewStoreOptions()
	so.Path = filepath.Join(t.TempDir(), "vehicle_data.csv")

	ho := options.NewHttpOptions()
	ho.Host, ho.Port = "127.0.0.1", 0

	to := options.NewTelematicsOptions()
	to.Driver = options.DriverSimulated

	return &Config{
		VehicleOptions:    vo,
		PollOptions:       options.NewPollOptions(),
		StoreOptions:      so,
		TelematicsOptions: to,
		HttpOptions:       ho,
		S3Options:         options.NewS3Options(),
		MqttOptions:       options.NewMqttOptions(),
		RedisOptions:      options.NewRedisOptions(),
	}
}

func TestPollOnceWithSimulatedVehicle(t *testing.T) {
	cfg := testConfig(t)
	cfg.TelematicsOptions.StaleAfter = 3 * time.Hour

	m, err := cfg.NewMonitor(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	sample, err := m.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if sample.Location == nil || sample.BatteryHealth == 0 {
		t.Errorf("sample = %+v", sample)
	}
	if got := m.publisher.Snapshot().ChargingLevel; got != sample.ChargingLevel {
		t.Errorf("published charge = %v, want %v", got, sample.ChargingLevel)
	}

	raw, err := os.ReadFile(cfg.StoreOptions.Path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(string(raw)), "\n"); len(lines) != 2 {
		t.Errorf("log has %d lines, want 2", len(lines))
	}
}

func TestNewMonitorRejectsBadBudget(t *testing.T) {
	cfg := testConfig(t)
	cfg.PollOptions.RequestsPerDay = 0

	if _, err := cfg.NewMonitor(context.Background()); err == nil {
		t.Error("NewMonitor accepted a zero request budget")
	}
}

func TestNewTelematicsClient(t *testing.T) {
	cfg := testConfig(t)

	cfg.TelematicsOptions.Driver = options.DriverBridge
	if _, err := cfg.NewTelematicsClient(); err != nil {
		t.Errorf("bridge driver: %v", err)
	}

	cfg.TelematicsOptions.BaseURL = "::"
	if _, err := cfg.NewTelematicsClient(); err == nil {
		t.Error("bridge driver accepted a bad url")
	}

	cfg.TelematicsOptions.Driver = "carrier-pigeon"
	if _, err := cfg.NewTelematicsClient(); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.PollOptions.Enabled = true

	m, err := cfg.NewMonitor(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(cfg.StoreOptions.Path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first poll never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop")
	}
}

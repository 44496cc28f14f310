// Package notifier publishes recorded samples to an MQTT broker.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"visioniq.io/visioniq/internal/store"
	"visioniq.io/visioniq/pkg/log"
	pkgmqtt "visioniq.io/visioniq/pkg/mqtt"
	"visioniq.io/visioniq/pkg/mqtt/topic"
	"visioniq.io/visioniq/pkg/options"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"

	disconnectTimeout = 5 * time.Second

	// defaultConnectWait bounds how long Record waits for the broker
	// handshake when the first sample arrives before it.
	defaultConnectWait = 10 * time.Second
)

// Payload is the JSON body of a sample message.
type Payload struct {
	VehicleID     string   `json:"vehicle_id"`
	Timestamp     string   `json:"timestamp"`
	ChargingLevel float64  `json:"charging_level"`
	Mileage       float64  `json:"mileage"`
	BatteryHealth float64  `json:"battery_health"`
	DrivingRange  float64  `json:"ev_driving_range"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
}

func newPayload(vehicleID string, s store.Sample) Payload {
	p := Payload{
		VehicleID:     vehicleID,
		Timestamp:     store.FormatTimestamp(s.Timestamp),
		ChargingLevel: s.ChargingLevel,
		Mileage:       s.Mileage,
		BatteryHealth: s.BatteryHealth,
		DrivingRange:  s.DrivingRange,
	}
	if s.Location != nil {
		lon, lat := s.Location.Longitude, s.Location.Latitude
		p.Longitude, p.Latitude = &lon, &lat
	}
	return p
}

// MQTTNotifier is a poller sink. It owns a dedicated egress connection and
// announces its presence on the retained status topic.
type MQTTNotifier struct {
	client    pkgmqtt.Client
	topics    *topic.Builder
	vehicleID string
	qos       int
	retain    bool
	logger    log.Logger

	connectWait time.Duration
}

// NewMQTTNotifier builds the client. The connection is opened by Start.
func NewMQTTNotifier(opts *options.MqttOptions, vehicleID string) (*MQTTNotifier, error) {
	topics := topic.NewBuilder(opts.TopicRoot)

	cfg := opts.ToClientConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = "visioniq-" + vehicleID
	}
	cfg.WillTopic = topics.Status(vehicleID)
	cfg.WillPayload = []byte(statusOffline)
	cfg.WillQoS = 1
	cfg.WillRetain = true

	client, err := pkgmqtt.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mqtt client: %w", err)
	}

	return NewWithClient(client, topics, vehicleID, opts.QoS, opts.Retain), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client pkgmqtt.Client, topics *topic.Builder, vehicleID string, qos int, retain bool) *MQTTNotifier {
	return &MQTTNotifier{
		client:    client,
		topics:    topics,
		vehicleID: vehicleID,
		qos:       qos,
		retain:    retain,
		logger:    log.WithName("notifier").WithValues("vehicleID", vehicleID),

		connectWait: defaultConnectWait,
	}
}

func (n *MQTTNotifier) Name() string { return "mqtt" }

// Record publishes s on the vehicle's sample topic. While the broker
// handshake is pending it waits up to connectWait first.
func (n *MQTTNotifier) Record(ctx context.Context, vehicleID string, s store.Sample) error {
	payload, err := json.Marshal(newPayload(vehicleID, s))
	if err != nil {
		return err
	}

	if !n.client.IsConnected() {
		wctx, cancel := context.WithTimeout(ctx, n.connectWait)
		err := n.client.AwaitConnection(wctx)
		cancel()
		if err != nil {
			return fmt.Errorf("mqtt broker not connected: %w", err)
		}
	}
	return n.client.Publish(ctx, n.topics.Sample(vehicleID), n.qos, n.retain, payload)
}

// Connect opens the broker connection. It does not wait for the handshake.
func (n *MQTTNotifier) Connect(ctx context.Context) error {
	if err := n.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start mqtt client: %w", err)
	}
	return nil
}

// WaitOnline blocks until the broker accepted the connection, then marks
// the vehicle feed online.
func (n *MQTTNotifier) WaitOnline(ctx context.Context) error {
	if err := n.client.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("mqtt broker not reachable: %w", err)
	}
	if err := n.client.Publish(ctx, n.topics.Status(n.vehicleID), 1, true, []byte(statusOnline)); err != nil {
		return fmt.Errorf("failed to publish online status: %w", err)
	}
	return nil
}

// Close marks the feed offline and disconnects.
func (n *MQTTNotifier) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	if n.client.IsConnected() {
		if err := n.client.Publish(ctx, n.topics.Status(n.vehicleID), 1, true, []byte(statusOffline)); err != nil {
			n.logger.Error(err, "Failed to publish offline status")
		}
	}
	n.client.Disconnect(ctx)
}

// Start connects and blocks until ctx is cancelled.
func (n *MQTTNotifier) Start(ctx context.Context) error {
	if err := n.Connect(ctx); err != nil {
		return err
	}
	defer n.Close()

	if err := n.WaitOnline(ctx); err != nil && ctx.Err() == nil {
		n.logger.Error(err, "Notifier is not online")
	}

	<-ctx.Done()
	return nil
}

package mqtt

import (
	"context"
)

// Client publishes messages to an MQTT broker. Connection management and
// reconnects happen in the background once Start returns.
type Client interface {
	// Start initiates the connection to the broker. It is non-blocking;
	// use AwaitConnection to wait for the first CONNACK.
	Start(ctx context.Context) error

	// Disconnect cleanly closes the connection.
	Disconnect(ctx context.Context)

	// Publish sends payload to topic.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// AwaitConnection blocks until the client is connected or ctx ends.
	AwaitConnection(ctx context.Context) error

	// IsConnected reports the last observed connection state.
	IsConnected() bool
}

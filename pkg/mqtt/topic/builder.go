package topic

import (
	"fmt"
)

// Topic suffixes published by visioniq. Subscribers depend on these.
const (
	// SuffixSample carries every recorded sample.
	// Structure: {root}/sample/{vehicleID}
	SuffixSample = "sample"

	// SuffixStatus carries the publisher's online/offline state (retained, LWT).
	// Structure: {root}/status/{vehicleID}
	SuffixStatus = "status"
)

// MQTT filter wildcards. Wildcard matches exactly one level; MultiWildcard
// matches the rest of the topic and must come last.
const (
	Wildcard      = "+"
	MultiWildcard = "#"
)

// Builder constructs topic strings under a fixed root namespace.
type Builder struct {
	root string
}

// NewBuilder creates a Builder for root (e.g. "visioniq/v1").
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// Sample returns the topic samples for vehicleID are published to.
func (b *Builder) Sample(vehicleID string) string {
	return b.build(SuffixSample, vehicleID)
}

// SampleWildcard matches the sample topic of every vehicle.
func (b *Builder) SampleWildcard() string {
	return b.build(SuffixSample, Wildcard)
}

// All matches every topic under the root.
func (b *Builder) All() string {
	return b.root + "/" + MultiWildcard
}

// Status returns the retained online-status topic for vehicleID.
func (b *Builder) Status(vehicleID string) string {
	return b.build(SuffixStatus, vehicleID)
}

func (b *Builder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}

// Package node contains the firmware-side state machines: the measurement
// scheduler that drives the acquisition cycle across the configured sensors,
// and the burst controller that retransmits each beacon frame.
//
// Both run as single goroutines with one timer each; all waiting is "arm the
// timer at an absolute instant", never a blocking call, so the same code
// maps onto a cooperative run-to-completion task model. Each loop owns its
// state exclusively; there is no shared mutable state between them beyond
// the handed-off, immutable advertisement.
package node

import (
	"context"
	"time"

	"sensilo-go/beacon"
	"sensilo-go/errcode"
	"sensilo-go/types"
)

// Sensor abstracts a split-phase sensor for the acquisition cycle.
// Implementations must not own goroutines.
type Sensor interface {
	ID() string
	// Trigger starts a measurement without blocking and returns the
	// worst-case completion latency for this sensor.
	Trigger(ctx context.Context) (collectAfter time.Duration, err error)
	// Collect writes this sensor's readings into the in-progress payload.
	// By contract the result is already available when Collect is called;
	// ErrNotReady at that point is a violation and is surfaced, not retried.
	Collect(ctx context.Context, p *beacon.Payload) error
}

// ErrNotReady signals that a sensor had no result at the collection deadline.
var ErrNotReady error = errcode.NotReady

// SensorSlot configures one sensor in the cycle. A failure on a non-optional
// slot abandons the whole cycle; an optional failure just leaves the reading
// absent.
type SensorSlot struct {
	Sensor   Sensor
	Optional bool
}

// Cycle is the record of one acquisition cycle, emitted for observability.
type Cycle struct {
	ScheduledStart time.Time
	Counter        uint16
	Payload        beacon.Payload
	Err            error
}

// Radio is the transmit primitive of the external link-layer stack.
type Radio interface {
	// Broadcast sends one non-connectable advertisement. A returned error is
	// treated as transient: the transmission is skipped, nothing is retried.
	Broadcast(addr types.Address, advData []byte) error
}

// FrameSink receives a finished advertisement; the burst controller
// implements it.
type FrameSink interface {
	Submit(adv *beacon.Advertisement) bool
}

// TxEvent reports one burst transmission attempt.
type TxEvent struct {
	Counter uint16
	Attempt int
	Err     error
}

// Package iobustest provides an in-memory iobus.Bus for exercising the bus
// manager, LSS engine and SDO client without a real CAN interface.
// Generalized from the now-removed TCP-loopback virtual bus: tests run
// in-process, so Deliver hands a frame straight to the subscribed listener
// rather than passing it through a socket.
package iobustest

import (
	"sync"

	iobus "github.com/linux-automation/lxa-iobus"
)

// FakeBus is a loopback-free in-memory transport: frames sent via Send are
// recorded, and a test drives responses by calling Deliver to simulate a
// node's reply.
type FakeBus struct {
	mu       sync.Mutex
	listener iobus.FrameListener
	sent     []iobus.Frame

	// SendHook, if set, is called for every frame passed to Send, in
	// addition to recording it; it may synthesize a response by calling
	// Deliver itself (e.g. to emulate a node echoing a command).
	SendHook func(frame iobus.Frame)
}

// NewFakeBus returns a ready, already-connected FakeBus.
func NewFakeBus() *FakeBus {
	return &FakeBus{}
}

func (b *FakeBus) Connect(...any) error    { return nil }
func (b *FakeBus) Disconnect() error       { return nil }

func (b *FakeBus) Send(frame iobus.Frame) error {
	b.mu.Lock()
	b.sent = append(b.sent, frame)
	hook := b.SendHook
	b.mu.Unlock()

	if hook != nil {
		hook(frame)
	}
	return nil
}

func (b *FakeBus) Subscribe(listener iobus.FrameListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = listener
	return nil
}

// Sent returns a snapshot of every frame handed to Send, in order.
func (b *FakeBus) Sent() []iobus.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]iobus.Frame(nil), b.sent...)
}

// Deliver simulates an inbound frame from the bus, dispatching it to
// whatever is currently subscribed (normally a BusManager).
func (b *FakeBus) Deliver(frame iobus.Frame) {
	b.mu.Lock()
	listener := b.listener
	b.mu.Unlock()
	if listener != nil {
		listener.Handle(frame)
	}
}

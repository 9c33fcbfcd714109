package iobus

import (
	sockcan "github.com/brutella/can"
)

// brutellaBus adapts github.com/brutella/can's netlink-based socketcan
// wrapper to the Bus interface. Registered as "brutella" so a deployment can
// pick it over pkg/rawcan's direct-syscall transport without a code change,
// e.g. on platforms where raw AF_CAN sockets are unavailable but the kernel's
// netlink CAN interface is.
type brutellaBus struct {
	bus      *sockcan.Bus
	listener FrameListener
}

func init() {
	RegisterInterface("brutella", newBrutellaBus)
}

func newBrutellaBus(channel string) (Bus, error) {
	bus, err := sockcan.NewBusForInterfaceWithName(channel)
	if err != nil {
		return nil, err
	}
	return &brutellaBus{bus: bus}, nil
}

func (b *brutellaBus) Connect(...any) error {
	go b.bus.ConnectAndPublish()
	return nil
}

func (b *brutellaBus) Disconnect() error {
	return b.bus.Disconnect()
}

func (b *brutellaBus) Send(frame Frame) error {
	return b.bus.Publish(sockcan.Frame{
		ID:     frame.ID,
		Length: frame.DLC,
		Data:   frame.Data,
	})
}

func (b *brutellaBus) Subscribe(listener FrameListener) error {
	b.listener = listener
	b.bus.Subscribe(b)
	return nil
}

// Handle implements brutella/can's Handler interface.
func (b *brutellaBus) Handle(frame sockcan.Frame) {
	b.listener.Handle(Frame{ID: frame.ID, DLC: frame.Length, Data: frame.Data})
}

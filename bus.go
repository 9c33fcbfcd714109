package iobus

// Frame is a CAN 2.0A frame: an 11-bit arbitration id and up to 8 data bytes.
type Frame struct {
	ID   uint32
	DLC  uint8
	Data [8]byte
}

// FrameListener receives frames dispatched by a BusManager. Handle must not block.
type FrameListener interface {
	Handle(frame Frame)
}

// Bus is the transport a BusManager drives. Implementations: the socketcan
// wrapper around github.com/brutella/can (bus_brutella.go) and the raw
// AF_CAN/SOCK_RAW transport in pkg/rawcan.
type Bus interface {
	Connect(...any) error
	Disconnect() error
	Send(frame Frame) error
	Subscribe(callback FrameListener) error
}

// NewInterfaceFunc constructs a Bus bound to the named CAN channel (e.g. "can0").
type NewInterfaceFunc func(channel string) (Bus, error)

var interfaceRegistry = make(map[string]NewInterfaceFunc)

// RegisterInterface makes a transport available to NewBus under interfaceType.
// Transport packages call this from an init() function.
func RegisterInterface(interfaceType string, newInterface NewInterfaceFunc) {
	interfaceRegistry[interfaceType] = newInterface
}

// NewBus looks up a registered transport by name and connects it to channel.
func NewBus(interfaceType string, channel string) (Bus, error) {
	newInterface, ok := interfaceRegistry[interfaceType]
	if !ok {
		return nil, ErrUnknownInterface
	}
	return newInterface(channel)
}

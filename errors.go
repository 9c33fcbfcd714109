package iobus

import (
	"errors"
	"fmt"
)

// Transport and link errors.
var (
	ErrUnknownInterface = errors.New("iobus: unknown CAN interface type")
	ErrLinkDown         = errors.New("iobus: link is down")
	ErrTxOverflow       = errors.New("iobus: transmit queue full")
	ErrShutdown         = errors.New("iobus: bus manager is shutting down")
)

// Request-level errors, shared by pkg/lss and pkg/sdo.
var (
	ErrTimeout          = errors.New("iobus: request timed out")
	ErrBusy             = errors.New("iobus: a transaction is already in flight")
	ErrUnknownNode      = errors.New("iobus: unknown node")
	ErrNodeIDExhausted  = errors.New("iobus: no free node id available")
	ErrInvalidNodeID    = errors.New("iobus: node id out of range")
)

// External API errors: the surface list_nodes/get_node/read_pin/write_pin/
// toggle_locator/raw_sdo_read/raw_sdo_write expose to an HTTP layer or CLI.
var (
	ErrUnknownPin            = errors.New("iobus: unknown pin name for this product")
	ErrPinReadOnly           = errors.New("iobus: pin is read-only")
	ErrNoLocator             = errors.New("iobus: node does not advertise a locator")
	ErrRawSDOIndexNotAllowed = errors.New("iobus: raw sdo access restricted to index range [0x1000, 0x3000)")
)

// ProtocolError reports an unexpected frame: wrong command specifier, or a
// reply addressing a different (index, sub-index) than the one requested.
// It indicates bus corruption or a firmware bug.
type ProtocolError struct {
	NodeID  uint8
	Context string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("iobus: protocol violation on node %d: %s", e.NodeID, e.Context)
}

// AbortError is a decoded SDO or ISP abort response.
type AbortError struct {
	NodeID   uint8
	Index    uint16
	SubIndex uint8
	Code     uint32
}

func (e *AbortError) Error() string {
	reason, ok := SDOAbortCodes[e.Code]
	if !ok {
		reason = "unknown abort code"
	}
	return fmt.Sprintf("iobus: sdo abort on node %d, index 0x%04X:%d: 0x%08X (%s)",
		e.NodeID, e.Index, e.SubIndex, e.Code, reason)
}

// SDOAbortCodes decodes the well-known CANopen abort codes used by this
// restricted SDO subset.
var SDOAbortCodes = map[uint32]string{
	0x05030000: "toggle bit not alternated",
	0x05040000: "SDO protocol timed out",
	0x05040001: "command specifier not valid or unknown",
	0x05040002: "invalid block size (block mode only)",
	0x05040003: "invalid sequence number (block mode only)",
	0x05040004: "CRC error (block mode only)",
	0x05040005: "out of memory",
	0x06010000: "unsupported access to an object",
	0x06010001: "attempt to read a write only object",
	0x06010002: "attempt to write a read only object",
	0x06020000: "object does not exist in the object dictionary",
	0x06040041: "object cannot be mapped to the PDO",
	0x06040042: "PDO length exceeded",
	0x06040043: "general parameter incompatibility reasons",
	0x06040047: "general internal incompatibility in the device",
	0x06060000: "access failed due to a hardware error",
	0x06070010: "data type does not match, length of service parameter does not match",
	0x06070012: "data type does not match, length of service parameter too high",
	0x06070013: "data type does not match, length of service parameter too low",
	0x06090011: "sub-index does not exist",
	0x06090030: "invalid value for parameter",
	0x06090031: "value of parameter written too high",
	0x06090032: "value of parameter written too low",
	0x06090036: "maximum value is less than minimum value",
	0x060A0023: "resource not available: SDO connection",
	0x08000000: "general error",
	0x08000020: "data cannot be transferred or stored to the application",
	0x08000021: "data cannot be transferred or stored to the application because of local control",
	0x08000022: "data cannot be transferred or stored to the application because of the present device state",
	0x08000023: "object dictionary dynamic generation fails or no object dictionary is present",
	0x08000024: "no data available",
}

// Package sdo implements the per-node SDO (Service Data Object) client: a
// serialized expedited/segmented read-write protocol over two reserved
// arbitration ids per node. Grounded on bus_node.py's sdo_read/sdo_write,
// which pairs a per-node asyncio lock with a single-slot pending-response
// future; here that is a sync.Mutex plus a single-slot channel.
package sdo

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	iobus "github.com/linux-automation/lxa-iobus"
)

// segmentSize is the maximum payload carried by one download/upload segment
// frame (7 bytes: 1 command byte + 7 data bytes per frame).
const segmentSize = 7

// DefaultTimeout is the per-request deadline used by bus_node.py (1 s).
const DefaultTimeout = 1 * time.Second

// Client serializes all SDO traffic to one node. Only one read or write may
// be in flight at a time.
type Client struct {
	nodeID uint8
	bm     *iobus.BusManager
	logger *slog.Logger

	mu      sync.Mutex
	pending chan iobus.SDOResponse
	cancel  func()
	timeout time.Duration
}

// NewClient subscribes to nodeID's SDO response arbitration id and returns a
// ready Client.
func NewClient(nodeID uint8, bm *iobus.BusManager, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		nodeID:  nodeID,
		bm:      bm,
		logger:  logger.With("component", "sdo_client", "node_id", nodeID),
		pending: make(chan iobus.SDOResponse, 1),
		timeout: DefaultTimeout,
	}
	cancel, err := bm.Subscribe(iobus.SDORxCobID(nodeID), c)
	if err != nil {
		return nil, err
	}
	c.cancel = cancel
	return c, nil
}

// Close unsubscribes the client from the bus.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// SetTimeout overrides the per-request deadline (default 1s).
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// Handle implements iobus.FrameListener. A response with no request waiting
// is dropped silently — a cancelled or timed-out request must discard a late
// reply without panicking.
func (c *Client) Handle(frame iobus.Frame) {
	resp, err := iobus.DecodeSDOResponse(iobus.SDORxCobID(c.nodeID), frame)
	if err != nil {
		c.logger.Warn("malformed sdo response", "err", err)
		return
	}
	select {
	case c.pending <- resp:
	default:
	}
}

func (c *Client) roundTrip(frame iobus.Frame) (iobus.SDOResponse, error) {
	select {
	case <-c.pending:
	default:
	}

	if err := c.bm.Send(frame); err != nil {
		return iobus.SDOResponse{}, err
	}

	select {
	case resp := <-c.pending:
		return resp, nil
	case <-time.After(c.timeout):
		return iobus.SDOResponse{}, iobus.ErrTimeout
	}
}

func (c *Client) checkIndex(resp iobus.SDOResponse, index uint16, subIndex uint8) error {
	if resp.Command == 4 {
		return &iobus.AbortError{NodeID: c.nodeID, Index: resp.Index, SubIndex: resp.SubIndex, Code: resp.AbortCode}
	}
	if resp.Index != index || resp.SubIndex != subIndex {
		return &iobus.ProtocolError{NodeID: c.nodeID, Context: fmt.Sprintf("response for %04X:%d, expected %04X:%d", resp.Index, resp.SubIndex, index, subIndex)}
	}
	return nil
}

// Read performs an SDO upload: expedited if the node answers with the data
// inline, segmented (looping on toggle/complete) otherwise.
func (c *Client) Read(index uint16, subIndex uint8) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.roundTrip(iobus.EncodeSDOInitiateUpload(c.nodeID, index, subIndex))
	if err != nil {
		return nil, err
	}
	if resp.Command == 4 {
		return nil, &iobus.AbortError{NodeID: c.nodeID, Index: resp.Index, SubIndex: resp.SubIndex, Code: resp.AbortCode}
	}
	if resp.Command != 2 {
		return nil, &iobus.ProtocolError{NodeID: c.nodeID, Context: "expected initiate upload response"}
	}
	if err := c.checkIndex(resp, index, subIndex); err != nil {
		return nil, err
	}

	switch resp.TransferType {
	case iobus.SDOTransferDataWithSize, iobus.SDOTransferDataNoSize:
		return resp.Data, nil

	case iobus.SDOTransferSizeOnly:
		return c.readSegmented(index, subIndex)

	default:
		return nil, &iobus.ProtocolError{NodeID: c.nodeID, Context: "initiate upload: reserved transfer type"}
	}
}

func (c *Client) readSegmented(index uint16, subIndex uint8) ([]byte, error) {
	var collected []byte
	toggle := false

	for {
		resp, err := c.roundTrip(iobus.EncodeSDOSegmentUpload(c.nodeID, toggle))
		if err != nil {
			return nil, err
		}
		if resp.Command == 4 {
			return nil, &iobus.AbortError{NodeID: c.nodeID, Index: resp.Index, SubIndex: resp.SubIndex, Code: resp.AbortCode}
		}
		if resp.Command != 0 {
			return nil, &iobus.ProtocolError{NodeID: c.nodeID, Context: "expected upload segment response"}
		}
		if resp.Toggle != toggle {
			return nil, &iobus.ProtocolError{NodeID: c.nodeID, Context: "toggle bit not alternated"}
		}

		collected = append(collected, resp.SegData...)
		if resp.Complete {
			return collected, nil
		}
		toggle = !toggle
	}
}

// Write performs an SDO download: expedited if data fits in 4 bytes,
// segmented otherwise.
func (c *Client) Write(index uint16, subIndex uint8, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(data) <= 4 {
		resp, err := c.roundTrip(iobus.EncodeSDOInitiateDownload(c.nodeID, index, subIndex, data, true))
		if err != nil {
			return err
		}
		if resp.Command == 4 {
			return &iobus.AbortError{NodeID: c.nodeID, Index: resp.Index, SubIndex: resp.SubIndex, Code: resp.AbortCode}
		}
		if resp.Command != 3 {
			return &iobus.ProtocolError{NodeID: c.nodeID, Context: "expected initiate download response"}
		}
		return c.checkIndex(resp, index, subIndex)
	}

	return c.writeSegmented(index, subIndex, data)
}

func (c *Client) writeSegmented(index uint16, subIndex uint8, data []byte) error {
	size := make([]byte, 4)
	size[0] = byte(len(data))
	size[1] = byte(len(data) >> 8)
	size[2] = byte(len(data) >> 16)
	size[3] = byte(len(data) >> 24)

	resp, err := c.roundTrip(iobus.EncodeSDOInitiateDownload(c.nodeID, index, subIndex, size, false))
	if err != nil {
		return err
	}
	if resp.Command == 4 {
		return &iobus.AbortError{NodeID: c.nodeID, Index: resp.Index, SubIndex: resp.SubIndex, Code: resp.AbortCode}
	}
	if resp.Command != 3 {
		return &iobus.ProtocolError{NodeID: c.nodeID, Context: "expected initiate download response"}
	}
	if err := c.checkIndex(resp, index, subIndex); err != nil {
		return err
	}

	toggle := false
	for offset := 0; offset < len(data); offset += segmentSize {
		end := offset + segmentSize
		if end > len(data) {
			end = len(data)
		}
		seg := data[offset:end]
		complete := end == len(data)

		resp, err := c.roundTrip(iobus.EncodeSDOSegmentDownload(c.nodeID, toggle, complete, seg))
		if err != nil {
			return err
		}
		if resp.Command == 4 {
			return &iobus.AbortError{NodeID: c.nodeID, Index: resp.Index, SubIndex: resp.SubIndex, Code: resp.AbortCode}
		}
		if resp.Command != 1 {
			return &iobus.ProtocolError{NodeID: c.nodeID, Context: "expected download segment response"}
		}
		if resp.Toggle != toggle {
			return &iobus.ProtocolError{NodeID: c.nodeID, Context: "toggle bit not alternated"}
		}
		toggle = !toggle
	}
	return nil
}

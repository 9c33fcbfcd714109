// Package lss implements the LSS (Layer Setting Services) discovery engine:
// switching nodes into configuration mode, the fast-scan bit-search protocol
// that identifies an unconfigured node's factory address, and node id
// assignment. Grounded on the single in-flight request / single-slot
// rendezvous pattern of a prior generation's LSSMaster, generalized from
// CiA-305 selective-switch LSS to this hardware family's fast-scan-only
// subset (see original_source/lxa_iobus/network.py).
package lss

import (
	"log/slog"
	"sync"
	"time"

	iobus "github.com/linux-automation/lxa-iobus"
)

// DefaultProbeTimeout is the time a fast-scan probe or switch-mode frame is
// given to draw a response before being treated as "no answer" (itself
// meaningful: in fast-scan, silence means the tested bit is 1, or no
// unconfigured node is present).
const DefaultProbeTimeout = 200 * time.Millisecond

// Engine runs LSS transactions against the bus. At most one transaction is
// outstanding at a time, enforced by mu.
type Engine struct {
	bm     *iobus.BusManager
	logger *slog.Logger

	mu      sync.Mutex
	pending chan iobus.LSSResponse
	cancel  func()
	timeout time.Duration
}

// NewEngine subscribes to LSS responses and returns a ready Engine.
func NewEngine(bm *iobus.BusManager, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		bm:      bm,
		logger:  logger.With("component", "lss_engine"),
		pending: make(chan iobus.LSSResponse, 1),
		timeout: DefaultProbeTimeout,
	}
	cancel, err := bm.Subscribe(iobus.LSSSlaveToMasterID, e)
	if err != nil {
		return nil, err
	}
	e.cancel = cancel
	return e, nil
}

// SetTimeout overrides the per-request deadline (default DefaultProbeTimeout).
func (e *Engine) SetTimeout(d time.Duration) {
	e.mu.Lock()
	e.timeout = d
	e.mu.Unlock()
}

// Close unsubscribes the engine from the bus.
func (e *Engine) Close() {
	if e.cancel != nil {
		e.cancel()
	}
}

// Handle implements iobus.FrameListener. A response with no in-flight
// request waiting for it is dropped silently, matching the single-slot
// rendezvous's documented behavior of discarding late replies.
func (e *Engine) Handle(frame iobus.Frame) {
	resp := iobus.DecodeLSSResponse(frame)
	select {
	case e.pending <- resp:
	default:
	}
}

// request sends frame and waits up to timeout for any LSS response. ok is
// false on timeout — in fast-scan this is a meaningful "no" answer, not an
// error. Callers outside this package must go through the exported helpers
// below, which hold mu for the transaction's whole duration.
func (e *Engine) request(frame iobus.Frame, timeout time.Duration) (iobus.LSSResponse, bool, error) {
	// Drain any stale response left over from a prior timed-out transaction.
	select {
	case <-e.pending:
	default:
	}

	if err := e.bm.Send(frame); err != nil {
		return iobus.LSSResponse{}, false, err
	}

	select {
	case resp := <-e.pending:
		return resp, true, nil
	case <-time.After(timeout):
		return iobus.LSSResponse{}, false, nil
	}
}

// SwitchGlobal broadcasts a switch-global frame. No meaningful response body
// exists; a missing response is logged and otherwise ignored, as no single
// node is expected to answer a broadcast.
func (e *Engine) SwitchGlobal(mode uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok, err := e.request(iobus.EncodeLSSSwitchGlobal(mode), e.timeout)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Debug("no response to switch global", "mode", mode)
	}
	return nil
}

// InvalidateNodeIDs broadcasts configure-node-id(0xFF), resetting every
// node's assigned id. Must be called with all nodes in configuration mode.
func (e *Engine) InvalidateNodeIDs() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok, err := e.request(iobus.EncodeLSSConfigureNodeID(iobus.NodeIDInvalidate), e.timeout)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Debug("no response to invalidate node ids")
	}
	return nil
}

// ConfigureNodeID assigns nodeID to the single node currently addressed
// (selected by a preceding fast-scan final confirm). Returns false if no
// node answered.
func (e *Engine) ConfigureNodeID(nodeID uint8) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok, err := e.request(iobus.EncodeLSSConfigureNodeID(nodeID), e.timeout)
	return ok, err
}

// probe sends one fast-scan frame and reports whether any slave answered.
// Matches fast_scan_request's extra 100ms settle delay after a positive
// response: the next probe's reply would otherwise race a straggling frame
// from this one.
func (e *Engine) probe(idNumber uint32, bitChecked, lssSub, lssNext uint8) (bool, error) {
	_, ok, err := e.request(iobus.EncodeLSSFastScan(idNumber, bitChecked, lssSub, lssNext), e.timeout)
	if err != nil {
		return false, err
	}
	if ok {
		time.Sleep(100 * time.Millisecond)
	}
	return ok, nil
}

// Probe is the locked, exported form of probe, used directly by tests.
// FastScanOnce already holds mu and calls the unlocked probe itself.
func (e *Engine) Probe(idNumber uint32, bitChecked, lssSub, lssNext uint8) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.probe(idNumber, bitChecked, lssSub, lssNext)
}

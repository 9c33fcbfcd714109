package iobus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MaxCanID bounds the 11-bit standard arbitration id space this stack uses.
const MaxCanID = 0x7FF

const (
	lssRxID        = LSSSlaveToMasterID
	sdoRxRangeLow  = 0x581
	sdoRxRangeHigh = 0x5FF

	txQueueDepth  = 64
	txRetryDelay  = 20 * time.Millisecond
	txRetryCap    = 500 * time.Millisecond
)

type subscriber struct {
	id       uint64
	callback FrameListener
}

// BusManager owns a single Bus, multiplexes inbound frames to per-arbitration-id
// subscribers, and serializes outbound frames through a bounded queue and a
// dedicated writer.
type BusManager struct {
	logger *slog.Logger

	mu        sync.Mutex
	listeners [MaxCanID + 1][]subscriber
	nextSubID uint64

	bus Bus

	txQueue chan Frame
	done    chan struct{}
	wg      sync.WaitGroup

	fatalOnce sync.Once
	fatalErr  error
	fatalCh   chan struct{}
}

// NewBusManager wraps bus with the TX queue, RX dispatch and Subscribe logic
// shared by the LSS engine and every node's SDO client. Start must be called
// before frames flow.
func NewBusManager(bus Bus, logger *slog.Logger) *BusManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusManager{
		logger:  logger.With("component", "bus_manager"),
		bus:     bus,
		txQueue: make(chan Frame, txQueueDepth),
		done:    make(chan struct{}),
		fatalCh: make(chan struct{}),
	}
}

// Start connects the transport, subscribes this manager as the sole
// FrameListener, and launches the writer goroutine.
func (bm *BusManager) Start(ctx context.Context) error {
	if err := bm.bus.Connect(ctx); err != nil {
		return err
	}
	if err := bm.bus.Subscribe(bm); err != nil {
		return err
	}
	bm.wg.Add(1)
	go bm.writeLoop()
	return nil
}

// Stop halts the writer and disconnects the transport.
func (bm *BusManager) Stop() error {
	select {
	case <-bm.done:
	default:
		close(bm.done)
	}
	bm.wg.Wait()
	return bm.bus.Disconnect()
}

// Done is closed when an unrecoverable transport error has ended the manager.
func (bm *BusManager) Done() <-chan struct{} { return bm.fatalCh }

// Err returns the error that triggered shutdown, if any.
func (bm *BusManager) Err() error { return bm.fatalErr }

// Handle implements FrameListener: it is invoked by the transport for every
// received frame and dispatches to the subscriber list for that arbitration id.
func (bm *BusManager) Handle(frame Frame) {
	if frame.ID > MaxCanID {
		return
	}

	bm.mu.Lock()
	listeners := append([]subscriber(nil), bm.listeners[frame.ID]...)
	bm.mu.Unlock()

	for _, sub := range listeners {
		sub.callback.Handle(frame)
	}
}

// Subscribe registers callback for frames with the given arbitration id.
// Returns a cancel func that removes the subscription.
func (bm *BusManager) Subscribe(id uint32, callback FrameListener) (cancel func(), err error) {
	if id > MaxCanID {
		return nil, &ProtocolError{Context: "arbitration id out of range"}
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	bm.nextSubID++
	subID := bm.nextSubID
	bm.listeners[id] = append(bm.listeners[id], subscriber{id: subID, callback: callback})

	cancel = func() {
		bm.mu.Lock()
		defer bm.mu.Unlock()
		subs := bm.listeners[id]
		for i, sub := range subs {
			if sub.id == subID {
				bm.listeners[id] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
	return cancel, nil
}

// Send enqueues frame for transmission. Returns ErrTxOverflow if the queue
// is full, ErrShutdown if the manager has stopped.
func (bm *BusManager) Send(frame Frame) error {
	select {
	case <-bm.done:
		return ErrShutdown
	default:
	}

	select {
	case bm.txQueue <- frame:
		return nil
	default:
		return ErrTxOverflow
	}
}

// writeLoop drains txQueue and hands frames to the transport. A buffer-full
// condition (no node present to ACK the frame) is logged once per burst and
// retried with exponential backoff capped at txRetryCap; any other write
// error is treated as fatal and ends the manager.
func (bm *BusManager) writeLoop() {
	defer bm.wg.Done()

	for {
		select {
		case <-bm.done:
			return
		case frame := <-bm.txQueue:
			bm.sendWithRetry(frame)
		}
	}
}

func (bm *BusManager) sendWithRetry(frame Frame) {
	delay := txRetryDelay
	loggedBufferFull := false

	for {
		err := bm.bus.Send(frame)
		if err == nil {
			return
		}

		if err == ErrTxOverflow {
			if !loggedBufferFull {
				bm.logger.Warn("kernel tx buffer full, retrying", "arbitration_id", frame.ID)
				loggedBufferFull = true
			}
			select {
			case <-bm.done:
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > txRetryCap {
				delay = txRetryCap
			}
			continue
		}

		bm.logger.Error("fatal transport write error", "err", err)
		bm.triggerFatal(err)
		return
	}
}

func (bm *BusManager) triggerFatal(err error) {
	bm.fatalOnce.Do(func() {
		bm.fatalErr = err
		close(bm.fatalCh)
		select {
		case <-bm.done:
		default:
			close(bm.done)
		}
	})
}

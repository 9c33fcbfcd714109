// Package rawcan implements the iobus.Bus transport directly against the
// Linux AF_CAN/SOCK_RAW socket, bypassing any CAN library. This is the
// transport the master uses in production: the lpc11xx bootloader family
// this stack talks to has no CAN FD support and no use for the extended
// filtering/error-frame machinery a heavier wrapper would add.
package rawcan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/linux-automation/lxa-iobus"
)

const frameSize = 16

func init() {
	iobus.RegisterInterface("rawcan", NewBus)
	iobus.RegisterInterface("socketcan", NewBus)
}

// kernelFrame mirrors struct can_frame from linux/can.h byte for byte.
type kernelFrame struct {
	id   uint32
	dlc  uint8
	pad  uint8
	res0 uint8
	res1 uint8
	data [8]uint8
}

// Bus is a raw socketcan transport bound to one interface (e.g. "can0").
// The interface must already be up; Bus never administers the link itself.
type Bus struct {
	f      *os.File
	fd     int
	logger *slog.Logger

	mu       sync.Mutex
	listener iobus.FrameListener

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBus opens a bound, timeout-configured AF_CAN socket on channel.
func NewBus(channel string) (iobus.Bus, error) {
	iface, err := net.InterfaceByName(channel)
	if err != nil {
		return nil, fmt.Errorf("rawcan: %w", err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("rawcan: open socket: %w", err)
	}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &defaultRecvTimeout); err != nil {
		return nil, fmt.Errorf("rawcan: set receive timeout: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		return nil, fmt.Errorf("rawcan: bind %s: %w", channel, err)
	}

	b := &Bus{fd: fd, logger: slog.Default().With("component", "rawcan", "channel", channel)}
	if err := b.SetIOBusFilters(); err != nil {
		b.logger.Warn("installing kernel-side iobus filters failed, all traffic on this interface will reach userspace", "error", err)
	}
	return b, nil
}

// iobusFilters are the CAN_RAW_FILTER entries matching every arbitration id
// a master ever listens for: SDO responses from any node id (0x580-0x5FF,
// the low 7 bits free) and the fixed LSS slave->master id. Installing these
// in the kernel means frames for other nodes' traffic unrelated to this
// protocol (other controllers sharing the bus, or this master's own
// transmitted frames without CAN_RAW_RECV_OWN_MSGS) are dropped before
// waking this process at all, rather than being read and discarded in
// BusManager.Handle.
func iobusFilters() []unix.CanFilter {
	return []unix.CanFilter{
		{Id: iobus.SDOSlaveToMasterBase, Mask: 0x7FF &^ 0x7F},
		{Id: iobus.LSSSlaveToMasterID, Mask: 0x7FF},
	}
}

// SetIOBusFilters installs iobusFilters via CAN_RAW_FILTER, narrowing what
// the kernel delivers to this socket to exactly the arbitration ids this
// module's protocol uses. Safe to call again to replace a prior filter set
// (e.g. after SetReceiveOwn in a test harness).
func (b *Bus) SetIOBusFilters() error {
	return unix.SetsockoptCanRawFilter(b.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, iobusFilters())
}

// ClearFilters removes any installed filter set, returning the socket to
// receiving every frame on the interface.
func (b *Bus) ClearFilters() error {
	return unix.SetsockoptCanRawFilter(b.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, []unix.CanFilter{{Mask: 0}})
}

// Connect starts the receive loop. The variadic argument, if present and a
// context.Context, governs the loop's lifetime; otherwise the loop runs
// until Disconnect.
func (b *Bus) Connect(args ...any) error {
	parent := context.Background()
	for _, a := range args {
		if ctx, ok := a.(context.Context); ok {
			parent = ctx
		}
	}

	var ctx context.Context
	ctx, b.cancel = context.WithCancel(parent)
	b.f = os.NewFile(uintptr(b.fd), fmt.Sprintf("fd %d", b.fd))

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.receiveLoop(ctx)
	}()
	return nil
}

// Disconnect stops the receive loop and closes the socket.
func (b *Bus) Disconnect() error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()
	b.wg.Wait()
	return b.f.Close()
}

// Send writes frame to the socket as a 16-byte struct can_frame.
func (b *Bus) Send(frame iobus.Frame) error {
	kf := kernelFrame{id: frame.ID, dlc: frame.DLC, data: frame.Data}
	raw := (*(*[frameSize]byte)(unsafe.Pointer(&kf)))[:]
	n, err := b.f.Write(raw)
	if err != nil {
		return fmt.Errorf("rawcan: write: %w", err)
	}
	if n != frameSize {
		return fmt.Errorf("rawcan: short write (%d of %d bytes)", n, frameSize)
	}
	return nil
}

// Subscribe registers the single listener frames are dispatched to.
func (b *Bus) Subscribe(listener iobus.FrameListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = listener
	return nil
}

func (b *Bus) receiveLoop(ctx context.Context) {
	rx := make([]byte, frameSize)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("raw can receive loop stopped")
			return
		default:
		}

		n, err := b.f.Read(rx)
		if errors.Is(err, syscall.EAGAIN) {
			continue
		}
		if err != nil || n != frameSize {
			b.logger.Error("raw can receive loop exiting", "error", err)
			return
		}

		kf := (*kernelFrame)(unsafe.Pointer(&rx[0]))
		frame := iobus.Frame{ID: kf.id, DLC: kf.dlc, Data: kf.data}

		b.mu.Lock()
		listener := b.listener
		b.mu.Unlock()
		if listener != nil {
			listener.Handle(frame)
		}
	}
}

// SetReceiveOwn toggles CAN_RAW_RECV_OWN_MSGS, useful under test with a
// loopback or virtual interface.
func (b *Bus) SetReceiveOwn(enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	return unix.SetsockoptInt(b.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_RECV_OWN_MSGS, v)
}

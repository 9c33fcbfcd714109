package iobus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// localFakeBus is a minimal in-package Bus fake, duplicated rather than
// imported from internal/iobustest to avoid an import cycle (iobustest
// itself imports this package).
type localFakeBus struct {
	mu       sync.Mutex
	listener FrameListener
	SendHook func(Frame)
}

func (b *localFakeBus) Connect(...any) error { return nil }
func (b *localFakeBus) Disconnect() error    { return nil }

func (b *localFakeBus) Send(frame Frame) error {
	b.mu.Lock()
	hook := b.SendHook
	b.mu.Unlock()
	if hook != nil {
		hook(frame)
	}
	return nil
}

func (b *localFakeBus) Subscribe(listener FrameListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = listener
	return nil
}

func (b *localFakeBus) Deliver(frame Frame) {
	b.mu.Lock()
	listener := b.listener
	b.mu.Unlock()
	if listener != nil {
		listener.Handle(frame)
	}
}

func TestNodeNameUsesProductDescriptor(t *testing.T) {
	bus := &localFakeBus{}
	bm := NewBusManager(bus, nil)
	require.NoError(t, bm.Start(context.Background()))
	defer bm.Stop()

	addr := FactoryAddress{Vendor: 0x507, Product: 2, Revision: 3, Serial: 42}
	node, err := newNode(addr, 5, bm, nil)
	require.NoError(t, err)

	assert.Equal(t, "4DO-3DI-3AI-00005.00000042", node.Name())
	assert.Equal(t, uint8(5), node.NodeID)
}

func TestNodePingWithoutDirectoryReadsMandatoryIdentity(t *testing.T) {
	bus := &localFakeBus{}
	bm := NewBusManager(bus, nil)
	require.NoError(t, bm.Start(context.Background()))
	defer bm.Stop()

	const nodeID = 5
	bus.SendHook = func(f Frame) {
		resp := Frame{ID: SDORxCobID(nodeID), DLC: 8}
		resp.Data[0] = (2 << 5) | (2 << 2) | 0b11
		resp.Data[1], resp.Data[2] = 0x08, 0x10
		copy(resp.Data[4:], []byte{'o', 'k'})
		bus.Deliver(resp)
	}

	node, err := newNode(FactoryAddress{}, nodeID, bm, nil)
	require.NoError(t, err)
	require.NoError(t, node.Ping())
}

func TestNodeTouchUpdatesLastSeen(t *testing.T) {
	bus := &localFakeBus{}
	bm := NewBusManager(bus, nil)
	require.NoError(t, bm.Start(context.Background()))
	defer bm.Stop()

	node, err := newNode(FactoryAddress{}, 5, bm, nil)
	require.NoError(t, err)

	assert.True(t, node.LastSeen().IsZero())
	node.touch()
	assert.False(t, node.LastSeen().IsZero())
}

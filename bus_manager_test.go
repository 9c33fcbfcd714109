package iobus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iobus "github.com/linux-automation/lxa-iobus"
	"github.com/linux-automation/lxa-iobus/internal/iobustest"
)

type recordingListener struct {
	frames chan iobus.Frame
}

func (l *recordingListener) Handle(frame iobus.Frame) {
	l.frames <- frame
}

func TestBusManagerDispatchesByArbitrationID(t *testing.T) {
	bus := iobustest.NewFakeBus()
	bm := iobus.NewBusManager(bus, nil)
	require.NoError(t, bm.Start(context.Background()))
	defer bm.Stop()

	listener := &recordingListener{frames: make(chan iobus.Frame, 1)}
	cancel, err := bm.Subscribe(0x585, listener)
	require.NoError(t, err)
	defer cancel()

	bus.Deliver(iobus.Frame{ID: 0x585, DLC: 8})
	select {
	case f := <-listener.frames:
		assert.Equal(t, uint32(0x585), f.ID)
	case <-time.After(time.Second):
		t.Fatal("listener never received frame")
	}
}

func TestBusManagerSubscribeCancel(t *testing.T) {
	bus := iobustest.NewFakeBus()
	bm := iobus.NewBusManager(bus, nil)
	require.NoError(t, bm.Start(context.Background()))
	defer bm.Stop()

	listener := &recordingListener{frames: make(chan iobus.Frame, 1)}
	cancel, err := bm.Subscribe(0x585, listener)
	require.NoError(t, err)
	cancel()

	bus.Deliver(iobus.Frame{ID: 0x585, DLC: 8})
	select {
	case <-listener.frames:
		t.Fatal("cancelled listener should not receive frames")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusManagerSendRecordsFrame(t *testing.T) {
	bus := iobustest.NewFakeBus()
	bm := iobus.NewBusManager(bus, nil)
	require.NoError(t, bm.Start(context.Background()))
	defer bm.Stop()

	require.NoError(t, bm.Send(iobus.Frame{ID: 0x605, DLC: 8}))

	require.Eventually(t, func() bool {
		return len(bus.Sent()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint32(0x605), bus.Sent()[0].ID)
}

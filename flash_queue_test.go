package iobus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linux-automation/lxa-iobus/pkg/isp"
	"github.com/linux-automation/lxa-iobus/pkg/od"
)

func TestFlashQueueUnknownNode(t *testing.T) {
	bus := &localFakeBus{}
	bm := NewBusManager(bus, nil)
	require.NoError(t, bm.Start(context.Background()))
	defer bm.Stop()

	q := NewFlashQueue(NewRegistry(), bm, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go q.Run(ctx)
	defer cancel()

	job := q.Enqueue("nonexistent", FlashRegionFlash, []byte{0})
	assert.ErrorIs(t, job.Wait(), ErrUnknownNode)
}

func TestFlashQueueRejectsMissingBootloader(t *testing.T) {
	bus := &localFakeBus{}
	bm := NewBusManager(bus, nil)
	require.NoError(t, bm.Start(context.Background()))
	defer bm.Stop()

	node, err := newNode(FactoryAddress{}, 5, bm, nil)
	require.NoError(t, err)
	r := NewRegistry()
	r.BeginSetup(node)
	r.CommitSetup(node)

	q := NewFlashQueue(r, bm, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go q.Run(ctx)
	defer cancel()

	job := q.Enqueue(node.Name(), FlashRegionFlash, []byte{0})
	require.Error(t, job.Wait())
}

func TestFlashQueueRejectsOversizeImage(t *testing.T) {
	bus := &localFakeBus{}
	bm := NewBusManager(bus, nil)
	require.NoError(t, bm.Start(context.Background()))
	defer bm.Stop()

	node, err := newNode(FactoryAddress{}, 5, bm, nil)
	require.NoError(t, err)
	node.OD = &od.Directory{Bootloader: &od.Bootloader{}}
	r := NewRegistry()
	r.BeginSetup(node)
	r.CommitSetup(node)

	q := NewFlashQueue(r, bm, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go q.Run(ctx)
	defer cancel()

	job := q.Enqueue(node.Name(), FlashRegionConfig, make([]byte, isp.ConfigRegionSize+1))
	assert.ErrorIs(t, job.Wait(), ErrImageTooLarge)
}

func TestFlashQueueEvictsNodeOnTrigger(t *testing.T) {
	bus := &localFakeBus{}
	bm := NewBusManager(bus, nil)
	require.NoError(t, bm.Start(context.Background()))
	defer bm.Stop()

	node, err := newNode(FactoryAddress{}, 5, bm, nil)
	require.NoError(t, err)
	node.OD = &od.Directory{Bootloader: &od.Bootloader{}}
	r := NewRegistry()
	r.BeginSetup(node)
	r.CommitSetup(node)
	name := node.Name()
	require.NotNil(t, r.ByName, "sanity")

	q := NewFlashQueue(r, bm, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go q.Run(ctx)
	defer cancel()

	// The bootloader trigger write to node id 5 gets no reply (the node
	// reboots before answering) and times out quickly under triggerTimeout.
	// The ISP session that follows talks to node id 125; abort its first
	// write (Unlock) immediately so the job fails fast instead of waiting
	// out sdo.DefaultTimeout.
	bus.SendHook = func(f Frame) {
		if f.ID == SDOTxCobID(ISPNodeID) {
			abort := EncodeSDOAbort(0x2000, 0, 0x06020000)
			abort.ID = SDORxCobID(ISPNodeID)
			bus.Deliver(abort)
		}
	}

	job := q.Enqueue(name, FlashRegionFlash, make([]byte, 0))
	_ = job.Wait()

	_, err = r.ByName(name)
	assert.ErrorIs(t, err, ErrUnknownNode)
}

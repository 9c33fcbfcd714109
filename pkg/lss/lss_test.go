package lss_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	iobus "github.com/linux-automation/lxa-iobus"
	"github.com/linux-automation/lxa-iobus/internal/iobustest"
	"github.com/linux-automation/lxa-iobus/pkg/lss"
)

func newTestEngine(t *testing.T, bus *iobustest.FakeBus) *lss.Engine {
	t.Helper()
	bm := iobus.NewBusManager(bus, nil)
	require.NoError(t, bm.Start(context.Background()))
	t.Cleanup(func() { bm.Stop() })

	eng, err := lss.NewEngine(bm, nil)
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

// alwaysRespond wires bus to answer every outbound frame with an
// identify-slave response, simulating a single present node.
func alwaysRespond(bus *iobustest.FakeBus) {
	bus.SendHook = func(f iobus.Frame) {
		resp := iobus.Frame{ID: iobus.LSSSlaveToMasterID, DLC: 8}
		resp.Data[0] = iobus.LSSCmdIdentifySlave
		bus.Deliver(resp)
	}
}

func TestEngineProbeGetsResponse(t *testing.T) {
	bus := iobustest.NewFakeBus()
	alwaysRespond(bus)
	eng := newTestEngine(t, bus)

	ok, err := eng.Probe(0, 0x80, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEngineProbeTimesOutWithNoResponder(t *testing.T) {
	bus := iobustest.NewFakeBus()
	eng := newTestEngine(t, bus)

	start := time.Now()
	ok, err := eng.Probe(0, 0x80, 0, 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), lss.DefaultProbeTimeout)
}

func TestFastScanOnceNoUnconfiguredNode(t *testing.T) {
	bus := iobustest.NewFakeBus()
	eng := newTestEngine(t, bus)

	_, found, err := eng.FastScanOnce(lss.DefaultStart, lss.DefaultMask)
	require.NoError(t, err)
	require.False(t, found)
}

func TestFastScanOnceFullyMaskedConverges(t *testing.T) {
	// A zero mask has nothing to bit-search: only the presence probe and the
	// four field-confirms must succeed for FastScanOnce to return the start
	// vector verbatim.
	bus := iobustest.NewFakeBus()
	alwaysRespond(bus)
	eng := newTestEngine(t, bus)

	want := iobus.FactoryAddress{Vendor: 0x507, Product: 2, Revision: 3, Serial: 42}
	addr, found, err := eng.FastScanOnce(want.Fields(), [4]uint32{})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, want, addr)
}

func TestConfigureNodeIDNoResponder(t *testing.T) {
	bus := iobustest.NewFakeBus()
	eng := newTestEngine(t, bus)

	ok, err := eng.ConfigureNodeID(5)
	require.NoError(t, err)
	require.False(t, ok)
}

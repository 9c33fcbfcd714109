package od_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linux-automation/lxa-iobus/pkg/od"
)

func TestADCRead(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2ADC, 0, u32b(1))
	tr.set(0x2ADC, 1, u32b(1))
	tr.set(0x2ADC, 4, u16b(1000))   // raw
	tr.set(0x2ADC, 5, u32b(0))      // offset (i32)
	tr.set(0x2ADC, 6, u32b(0x3F800000)) // scale = 1.0 (IEEE754)

	adc, err := od.ScanADC(tr)
	require.NoError(t, err)

	reading, err := adc.Read(tr, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, reading, 0.001)
}

func TestADCRejectsUnsupportedVersion(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2ADC, 0, u32b(1))
	tr.set(0x2ADC, 1, u32b(2))

	_, err := od.ScanADC(tr)
	require.Error(t, err)
}

func TestTriggersThresholdRoundTrip(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2103, 0, u32b(1))
	tr.set(0x2103, 1, u32b(1))

	trg, err := od.ScanTriggers(tr)
	require.NoError(t, err)

	require.NoError(t, trg.SetThreshold(tr, 0, 0.5))
	got, err := trg.Threshold(tr, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 0.001)
}

func TestTriggersSetThresholdClamps(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2103, 0, u32b(1))
	tr.set(0x2103, 1, u32b(1))
	trg, err := od.ScanTriggers(tr)
	require.NoError(t, err)

	require.NoError(t, trg.SetThreshold(tr, 0, 5))
	got, err := trg.Threshold(tr, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 0.001)
}

func TestTimersScan(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2102, 0, u32b(2))
	tr.set(0x2102, 1, u32b(3))
	tr.set(0x2102, 2, u32b(1))
	tr.set(0x2102, 4, u32b(1000))
	tr.set(0x2102, 5, []byte{0, 0, 0, 0, 0, 0, 0, 0})

	tm, err := od.ScanTimers(tr)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tm.OutChannelCount)
	assert.Equal(t, uint32(3), tm.InChannelCount)
	assert.Equal(t, uint32(1000), tm.FrequencyHz)

	ts, err := tm.Time(tr)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ts)
}

func TestTimersQueueCapacitiesAndLevels(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2102, 0, u32b(2))
	tr.set(0x2102, 1, u32b(1))
	tr.set(0x2102, 2, u32b(1))
	tr.set(0x2102, 4, u32b(1000))
	tr.set(0x2102, 6, []byte{8, 8, 4}) // out0, out1, in0 capacities
	tr.set(0x2102, 7, []byte{2, 0, 1}) // out0, out1, in0 fill levels

	tm, err := od.ScanTimers(tr)
	require.NoError(t, err)

	caps, err := tm.QueueCapacities(tr)
	require.NoError(t, err)
	assert.Equal(t, []byte{8, 8, 4}, caps)

	levels, err := tm.QueueLevels(tr)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0, 1}, levels)
}

func TestTimersOutputQueueEntryRoundTrip(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2102, 0, u32b(2))
	tr.set(0x2102, 1, u32b(1))
	tr.set(0x2102, 2, u32b(1))
	tr.set(0x2102, 4, u32b(1000))

	tm, err := od.ScanTimers(tr)
	require.NoError(t, err)

	require.NoError(t, tm.SetOutputQueueEntry(tr, 1, od.TimerEntry{Timestamp: 12345, State: 1}))
	entry, err := tm.OutputQueueEntry(tr, 1)
	require.NoError(t, err)
	assert.Equal(t, od.TimerEntry{Timestamp: 12345, State: 1}, entry)

	// channel 1 is sub-index 8+1=9; channel 0's entry (sub 8) is untouched.
	require.NoError(t, tm.SetOutputNow(tr, 0, 1))
	entry, err = tm.OutputQueueEntry(tr, 0)
	require.NoError(t, err)
	assert.Equal(t, od.TimerEntry{Timestamp: 0, State: 1}, entry)
}

func TestTimersInputQueueEntryReadsPastOutputChannels(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2102, 0, u32b(2)) // 2 output channels
	tr.set(0x2102, 1, u32b(1)) // 1 input channel
	tr.set(0x2102, 2, u32b(1))
	tr.set(0x2102, 4, u32b(1000))
	// input channel 0 lives at sub 8+2+0=10.
	tr.set(0x2102, 10, append(u64b(999), 1))

	tm, err := od.ScanTimers(tr)
	require.NoError(t, err)

	entry, err := tm.InputQueueEntry(tr, 0)
	require.NoError(t, err)
	assert.Equal(t, od.TimerEntry{Timestamp: 999, State: 1}, entry)
}

func TestVersionInfoParsesJSONNotes(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2001, 0, u32b(1))
	tr.set(0x2001, 1, u32b(2))
	tr.set(0x2001, 2, []byte("00000042"))
	tr.set(0x2001, 3, []byte("lxa"))
	tr.set(0x2001, 5, []byte(`{"batch":"2024-03"}`))

	v, err := od.ScanVersionInfo(tr)
	require.NoError(t, err)
	require.NotNil(t, v.ParsedNotes)
	assert.Equal(t, "2024-03", v.ParsedNotes["batch"])
}

func TestVersionInfoToleratesNonJSONNotes(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2001, 0, u32b(1))
	tr.set(0x2001, 1, u32b(2))
	tr.set(0x2001, 2, []byte("00000042"))
	tr.set(0x2001, 3, []byte("lxa"))
	tr.set(0x2001, 5, []byte("not json"))

	v, err := od.ScanVersionInfo(tr)
	require.NoError(t, err)
	assert.Nil(t, v.ParsedNotes)
}

func TestLocatorEnableDisable(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x210C, 1, u32b(0))

	var loc od.Locator
	on, err := loc.State(tr)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, loc.Enable(tr))
	on, err = loc.State(tr)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, loc.Disable(tr))
	on, err = loc.State(tr)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestChipUIDReadsAllFourWords(t *testing.T) {
	tr := newFakeTransport()
	for i, v := range []uint32{1, 2, 3, 4} {
		tr.set(0x2C1D, uint8(i), u32b(v))
	}
	uid, err := od.ScanChipUID(tr)
	require.NoError(t, err)
	assert.Equal(t, od.ChipUID{1, 2, 3, 4}, uid)
}

func TestBootloaderTriggerWritesMagic(t *testing.T) {
	tr := newFakeTransport()
	var bl od.Bootloader
	require.NoError(t, bl.Trigger(tr))
	got, err := tr.Read(0x2B07, 0)
	require.NoError(t, err)
	assert.Equal(t, u32b(od.BootloaderMagic), got)
}

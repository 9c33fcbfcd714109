package od

import (
	"encoding/binary"
	"fmt"
)

// TimerEntry is one timestamped event in a timer channel's input or output
// queue: a cycle-counter timestamp (at Timers.FrequencyHz) and a pin state.
type TimerEntry struct {
	Timestamp uint64
	State     uint8
}

func decodeTimerEntry(b []byte) TimerEntry {
	return TimerEntry{Timestamp: binary.LittleEndian.Uint64(b[0:8]), State: b[8]}
}

func encodeTimerEntry(e TimerEntry) []byte {
	b := make([]byte, 9)
	binary.LittleEndian.PutUint64(b[0:8], e.Timestamp)
	b[8] = e.State
	return b
}

// Timers wraps 0x2102. Requires protocol version 1.
type Timers struct {
	OutChannelCount uint32
	InChannelCount  uint32
	Version         uint32
	FrequencyHz     uint32
}

// ScanTimers reads the fixed header sub-indices of 0x2102 and validates the
// protocol version, per object_directory.py's Timers (version must equal 1).
func ScanTimers(t Transport) (*Timers, error) {
	outCount, err := readU32(t, 0x2102, 0)
	if err != nil {
		return nil, err
	}
	inCount, err := readU32(t, 0x2102, 1)
	if err != nil {
		return nil, err
	}
	version, err := readU32(t, 0x2102, 2)
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("od: timers: unsupported protocol version %d", version)
	}
	freq, err := readU32(t, 0x2102, 4)
	if err != nil {
		return nil, err
	}
	return &Timers{OutChannelCount: outCount, InChannelCount: inCount, Version: version, FrequencyHz: freq}, nil
}

// Time reads the node's current cycle counter (sub 5, u64).
func (tm *Timers) Time(t Transport) (uint64, error) {
	b, err := t.Read(0x2102, 5)
	if err != nil {
		return 0, err
	}
	return decodeU64(b), nil
}

// Flags reads the 32-bit status/flag bit-field (sub 3).
func (tm *Timers) Flags(t Transport) (uint32, error) {
	return readU32(t, 0x2102, 3)
}

// QueueCapacities and QueueLevels read subs 6 and 7: one byte per channel,
// output channels first then input channels (object_directory.py's
// queue_levels_fields_out + queue_levels_fields_in), matching its "B" * n
// struct encoding rather than a single packed word.
func (tm *Timers) QueueCapacities(t Transport) ([]byte, error) { return t.Read(0x2102, 6) }
func (tm *Timers) QueueLevels(t Transport) ([]byte, error)     { return t.Read(0x2102, 7) }

// outputQueueSub and inputQueueSub locate a channel's fifo sub-index, per
// object_directory.py's `8 + instance` (output) and
// `8 + channel_count_out + instance` (input) layout.
func (tm *Timers) outputQueueSub(instance int) uint8 { return uint8(8 + instance) }
func (tm *Timers) inputQueueSub(instance int) uint8 {
	return uint8(8 + int(tm.OutChannelCount) + instance)
}

// OutputQueueEntry reads the oldest pending entry in output channel
// instance's queue.
func (tm *Timers) OutputQueueEntry(t Transport, instance int) (TimerEntry, error) {
	b, err := t.Read(0x2102, tm.outputQueueSub(instance))
	if err != nil {
		return TimerEntry{}, err
	}
	return decodeTimerEntry(b), nil
}

// SetOutputQueueEntry pushes an event onto output channel instance's queue:
// the node plays back state at Timestamp cycles from now. Output queues are
// writable; input queues, being capture results, are not.
func (tm *Timers) SetOutputQueueEntry(t Transport, instance int, entry TimerEntry) error {
	return t.Write(0x2102, tm.outputQueueSub(instance), encodeTimerEntry(entry))
}

// SetOutputNow clears channel instance's output queue and applies state
// immediately, per object_directory.py's set_output_now (timestamp 0).
func (tm *Timers) SetOutputNow(t Transport, instance int, state uint8) error {
	return tm.SetOutputQueueEntry(t, instance, TimerEntry{Timestamp: 0, State: state})
}

// InputQueueEntry reads the oldest captured event from input channel
// instance's queue. Read-only: the node, not the master, appends to it.
func (tm *Timers) InputQueueEntry(t Transport, instance int) (TimerEntry, error) {
	b, err := t.Read(0x2102, tm.inputQueueSub(instance))
	if err != nil {
		return TimerEntry{}, err
	}
	return decodeTimerEntry(b), nil
}

package od

import "fmt"

// Triggers wraps 0x2103: per-channel threshold comparators. Requires
// protocol version 1.
type Triggers struct {
	ChannelCount uint32
	Version      uint32
}

// ScanTriggers reads the header and validates the version.
func ScanTriggers(t Transport) (*Triggers, error) {
	count, err := readU32(t, 0x2103, 0)
	if err != nil {
		return nil, err
	}
	version, err := readU32(t, 0x2103, 1)
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("od: triggers: unsupported protocol version %d", version)
	}
	return &Triggers{ChannelCount: count, Version: version}, nil
}

// Threshold reads channel c's threshold, scaled from the wire's u16
// (0..0xFFFF) to a fraction in [0.0, 1.0].
func (tr *Triggers) Threshold(t Transport, channel int) (float64, error) {
	raw, err := readU16(t, 0x2103, uint8(2+channel))
	if err != nil {
		return 0, err
	}
	return float64(raw) / float64(0xFFFF), nil
}

// SetThreshold writes channel c's threshold from a [0.0, 1.0] fraction.
func (tr *Triggers) SetThreshold(t Transport, channel int, fraction float64) error {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	raw := uint16(fraction * float64(0xFFFF))
	return t.Write(0x2103, uint8(2+channel), encodeU16(raw))
}

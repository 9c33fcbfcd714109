package od

import "fmt"

// ADC wraps 0x2ADC: calibrated analog channels. Requires protocol version 1.
type ADC struct {
	ChannelCount uint32
	Version      uint32
}

// ScanADC reads the header and validates the version.
func ScanADC(t Transport) (*ADC, error) {
	count, err := readU32(t, 0x2ADC, 0)
	if err != nil {
		return nil, err
	}
	version, err := readU32(t, 0x2ADC, 1)
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("od: adc: unsupported protocol version %d", version)
	}
	return &ADC{ChannelCount: count, Version: version}, nil
}

// Read returns channel c's calibrated reading: (raw + offset) * scale.
func (a *ADC) Read(t Transport, channel int) (float32, error) {
	base := uint8(4 * (channel + 1))

	rawB, err := t.Read(0x2ADC, base)
	if err != nil {
		return 0, err
	}
	offsetB, err := t.Read(0x2ADC, base+1)
	if err != nil {
		return 0, err
	}
	scaleB, err := t.Read(0x2ADC, base+2)
	if err != nil {
		return 0, err
	}

	raw := decodeU16(rawB)
	offset := decodeI32(offsetB)
	scale := decodeF32(scaleB)

	return (float32(raw) + float32(offset)) * scale, nil
}

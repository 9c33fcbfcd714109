package od

// Well-known protocol indices a node can advertise via 0x2000.
const (
	ProtocolOutputs       uint32 = 0x2100
	ProtocolInputs        uint32 = 0x2101
	ProtocolTimers        uint32 = 0x2102
	ProtocolTriggers      uint32 = 0x2103
	ProtocolLocator       uint32 = 0x210C
	ProtocolADC           uint32 = 0x2ADC
	ProtocolBootloader    uint32 = 0x2B07
	ProtocolChipUID       uint32 = 0x2C1D
	ProtocolServerTimeout uint32 = 0x2D06
)

// ScanSupportedProtocols reads 0x2000: sub 0 is the count N, subs 1..N each
// give a supported protocol's index.
func ScanSupportedProtocols(t Transport) ([]uint32, error) {
	count, err := readU32(t, 0x2000, 0)
	if err != nil {
		return nil, err
	}

	protocols := make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		p, err := readU32(t, 0x2000, uint8(i+1))
		if err != nil {
			return nil, err
		}
		protocols[i] = p
	}
	return protocols, nil
}

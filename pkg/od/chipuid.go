package od

// ChipUID wraps 0x2C1D: the four 32-bit words of the microcontroller's
// factory-programmed unique id.
type ChipUID [4]uint32

// ScanChipUID reads all four words.
func ScanChipUID(t Transport) (ChipUID, error) {
	var uid ChipUID
	for i := 0; i < 4; i++ {
		v, err := readU32(t, 0x2C1D, uint8(i))
		if err != nil {
			return ChipUID{}, err
		}
		uid[i] = v
	}
	return uid, nil
}

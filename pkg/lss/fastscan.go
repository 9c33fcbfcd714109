package lss

import iobus "github.com/linux-automation/lxa-iobus"

// DefaultMask is the hardware family's configured default search range:
// vendor fixed (0 bits probed), product 0-255, revision 0-255, serial
// 0-65535. Grounded on network.py's lss_fast_scan hardware-default mask.
var DefaultMask = [4]uint32{0x00000000, 0x000000FF, 0x000000FF, 0x0000FFFF}

// DefaultStart is the start vector paired with DefaultMask.
var DefaultStart = [4]uint32{0, 0, 0, 0}

// CreateMaskFromAddresses computes the start vector and bit mask that
// captures the bits already known among a set of previously-seen factory
// addresses: a mask bit is set (to be probed) wherever the known addresses
// disagree, and the start vector holds the bits they agree on. An empty or
// single-element list yields a mask of all zero bits (nothing to probe; the
// address is assumed to already be known in full).
func CreateMaskFromAddresses(addrs []iobus.FactoryAddress) (start [4]uint32, mask [4]uint32) {
	if len(addrs) == 0 {
		return start, mask
	}

	fields := make([][4]uint32, len(addrs))
	for i, a := range addrs {
		fields[i] = a.Fields()
	}

	for i := 0; i < len(fields); i++ {
		for j := i + 1; j < len(fields); j++ {
			for k := 0; k < 4; k++ {
				mask[k] |= fields[i][k] ^ fields[j][k]
			}
		}
	}

	for k := 0; k < 4; k++ {
		start[k] = fields[0][k] &^ mask[k]
	}
	return start, mask
}

// FastScanOnce runs the bit-search fast-scan algorithm once against the
// given start/mask (only bits set in mask are probed; all others are taken
// verbatim from start). Returns false if no unconfigured node is present or
// the search aborts (a probed node vanished mid-scan).
func (e *Engine) FastScanOnce(start, mask [4]uint32) (iobus.FactoryAddress, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	present, err := e.probe(0, 0x80, 0, 0)
	if err != nil {
		return iobus.FactoryAddress{}, false, err
	}
	if !present {
		return iobus.FactoryAddress{}, false, nil
	}

	id := start

	for sub := uint8(0); sub < 4; sub++ {
		for bit := 31; bit >= 0; bit-- {
			if mask[sub]&(1<<uint(bit)) == 0 {
				continue
			}
			responded, err := e.probe(id[sub], uint8(bit), sub, sub)
			if err != nil {
				return iobus.FactoryAddress{}, false, err
			}
			if !responded {
				id[sub] |= 1 << uint(bit)
			}
		}

		if sub != 3 {
			responded, err := e.probe(id[sub], 0, sub, sub+1)
			if err != nil {
				return iobus.FactoryAddress{}, false, err
			}
			if !responded {
				return iobus.FactoryAddress{}, false, nil
			}
		}
	}

	responded, err := e.probe(id[3], 0, 3, 0)
	if err != nil {
		return iobus.FactoryAddress{}, false, err
	}
	if !responded {
		return iobus.FactoryAddress{}, false, nil
	}

	return iobus.FactoryAddressFromFields(id), true, nil
}

// FastScanKnownRangeAll tries, in order: addresses biased from previously
// seen nodes, the hardware family's configured default range, then a full
// 128-bit search. Returns false if no unconfigured node answers the initial
// presence probe at all.
func (e *Engine) FastScanKnownRangeAll(known []iobus.FactoryAddress) (iobus.FactoryAddress, bool, error) {
	if len(known) > 0 {
		start, mask := CreateMaskFromAddresses(known)
		if addr, ok, err := e.FastScanOnce(start, mask); err != nil {
			return addr, ok, err
		} else if ok {
			return addr, true, nil
		}
	}

	if addr, ok, err := e.FastScanOnce(DefaultStart, DefaultMask); err != nil {
		return addr, ok, err
	} else if ok {
		return addr, true, nil
	}

	return e.FastScanOnce([4]uint32{0, 0, 0, 0}, [4]uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF})
}

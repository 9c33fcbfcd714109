package od

// ServerTimeout wraps 0x2D06: an SDO-server watchdog that resets the node if
// the master goes silent for too long.
type ServerTimeout struct{}

// Enabled reads sub 0 (0 disables, nonzero enables).
func (ServerTimeout) Enabled(t Transport) (bool, error) {
	v, err := readU32(t, 0x2D06, 0)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Enable arms the watchdog.
func (ServerTimeout) Enable(t Transport) error {
	return t.Write(0x2D06, 0, encodeU32(1))
}

// Disable disarms the watchdog.
func (ServerTimeout) Disable(t Transport) error {
	return t.Write(0x2D06, 0, encodeU32(0))
}

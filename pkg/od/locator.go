package od

// Locator wraps 0x210C: a physically identifiable LED, remotely toggleable.
type Locator struct{}

// State reads sub 1's on/off flag.
func (Locator) State(t Transport) (bool, error) {
	v, err := readU32(t, 0x210C, 1)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Enable turns the locator LED on.
func (Locator) Enable(t Transport) error {
	return t.Write(0x210C, 1, encodeU32(1))
}

// Disable turns the locator LED off.
func (Locator) Disable(t Transport) error {
	return t.Write(0x210C, 1, encodeU32(0))
}

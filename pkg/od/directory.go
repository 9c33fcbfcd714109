package od

import "log/slog"

// Directory is a node's enumerated object directory: the three mandatory
// identity objects plus whichever vendor PDO groups 0x2000 advertised.
// Grounded on ObjectDirectory.scan: reading 0x2000 itself may abort on an
// older or minimal node, in which case the directory carries only Identity.
type Directory struct {
	Identity Identity
	Version  *VersionInfo

	Outputs       *Outputs
	Inputs        *Inputs
	Timers        *Timers
	Triggers      *Triggers
	Locator       *Locator
	ADC           *ADC
	Bootloader    *Bootloader
	ChipUID       *ChipUID
	ServerTimeout *ServerTimeout
}

// Scan reads 0x1008/9/A, then 0x2000's protocol list, then instantiates a
// typed wrapper per recognized protocol index. A wrapper's setup failure is
// logged and does not abort the others, nor the scan as a whole.
func Scan(t Transport, logger *slog.Logger) (*Directory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "object_directory")

	identity, err := ScanIdentity(t)
	if err != nil {
		return nil, err
	}
	dir := &Directory{Identity: identity}

	protocols, err := ScanSupportedProtocols(t)
	if err != nil {
		logger.Info("0x2000 not supported, directory limited to mandatory identity objects", "err", err)
		return dir, nil
	}

	for _, p := range protocols {
		switch p {
		case ProtocolOutputs:
			if o, err := ScanOutputs(t); err != nil {
				logger.Warn("setting up outputs", "err", err)
			} else {
				dir.Outputs = o
			}

		case ProtocolInputs:
			if i, err := ScanInputs(t); err != nil {
				logger.Warn("setting up inputs", "err", err)
			} else {
				dir.Inputs = i
			}

		case ProtocolTimers:
			if tm, err := ScanTimers(t); err != nil {
				logger.Warn("setting up timers", "err", err)
			} else {
				dir.Timers = tm
			}

		case ProtocolTriggers:
			if tr, err := ScanTriggers(t); err != nil {
				logger.Warn("setting up triggers", "err", err)
			} else {
				dir.Triggers = tr
			}

		case ProtocolLocator:
			l := Locator{}
			dir.Locator = &l

		case ProtocolADC:
			if a, err := ScanADC(t); err != nil {
				logger.Warn("setting up adc", "err", err)
			} else {
				dir.ADC = a
			}

		case ProtocolBootloader:
			b := Bootloader{}
			dir.Bootloader = &b

		case ProtocolChipUID:
			if uid, err := ScanChipUID(t); err != nil {
				logger.Warn("setting up chip uid", "err", err)
			} else {
				dir.ChipUID = &uid
			}

		case ProtocolServerTimeout:
			st := ServerTimeout{}
			dir.ServerTimeout = &st

		case 0x2001:
			if v, err := ScanVersionInfo(t); err != nil {
				logger.Warn("setting up version info", "err", err)
			} else {
				dir.Version = v
			}

		default:
			logger.Debug("unrecognized protocol index", "index", p)
		}
	}

	return dir, nil
}

package iobus

import (
	"context"
	"log/slog"
	"time"

	"github.com/linux-automation/lxa-iobus/pkg/lss"
	"github.com/linux-automation/lxa-iobus/pkg/product"
)

// discoveryPollInterval is how often the master checks for an unconfigured
// node while idle, matching network.py's run() 1s poll loop.
const discoveryPollInterval = 1 * time.Second

// Config configures a Master. Interface names a registered transport
// ("socketcan"/"rawcan" for pkg/rawcan, "brutella" for the brutella/can
// wrapper); Channel is the CAN interface name (e.g. "can0"); CachePath, if
// set, persists discovered factory addresses across restarts.
//
// Bitrate is informational only: this hardware family is fixed at 100
// kbit/s and the kernel interface must already be configured at that rate
// before Run is called (rawcan never administers the link itself), so a
// mismatch here is logged rather than enforced. Zero defaults to 100000.
type Config struct {
	Interface string
	Channel   string
	Bitrate   int
	CachePath string
	Timeouts  Timeouts
	Logger    *slog.Logger
}

// Timeouts overrides the per-protocol request deadlines. A zero field keeps
// that protocol's own default (sdo.DefaultTimeout, lss.DefaultProbeTimeout).
type Timeouts struct {
	SDO time.Duration
	LSS time.Duration
}

const defaultBitrate = 100000

// Master owns the bus, the LSS discovery engine and the node registry, and
// runs the discovery and liveness loops that keep the registry in sync with
// what is physically present on the bus. Grounded on network.py's run(),
// which combines these same three responsibilities in one asyncio task.
type Master struct {
	cfg    Config
	logger *slog.Logger

	bm         *BusManager
	lssEng     *lss.Engine
	cache      *lss.Cache
	registry   *Registry
	link       *LinkWatcher
	flashQueue *FlashQueue

	stopLiveness chan struct{}
}

// NewMaster constructs a Master. The bus is not yet connected; call Run to
// start discovery and liveness.
func NewMaster(cfg Config) (*Master, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "master", "channel", cfg.Channel)

	bitrate := cfg.Bitrate
	if bitrate == 0 {
		bitrate = defaultBitrate
	}
	if bitrate != defaultBitrate {
		logger.Warn("bitrate is fixed by the target hardware, ignoring requested value",
			"requested", bitrate, "fixed", defaultBitrate)
	}

	bus, err := NewBus(cfg.Interface, cfg.Channel)
	if err != nil {
		return nil, err
	}

	bm := NewBusManager(bus, logger)
	lssEng, err := lss.NewEngine(bm, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Timeouts.LSS != 0 {
		lssEng.SetTimeout(cfg.Timeouts.LSS)
	}

	registry := NewRegistry()

	return &Master{
		cfg:          cfg,
		logger:       logger,
		bm:           bm,
		lssEng:       lssEng,
		cache:        lss.NewCache(cfg.CachePath, logger),
		registry:     registry,
		link:         NewLinkWatcher(cfg.Channel, logger),
		flashQueue:   NewFlashQueue(registry, bm, logger),
		stopLiveness: make(chan struct{}),
	}, nil
}

// Registry returns the master's node registry.
func (m *Master) Registry() *Registry { return m.registry }

// NodeInfo is the CANopen-identity slice of a NodeSummary: the three
// mandatory string objects plus whether the installed firmware differs from
// the product descriptor's bundled version.
type NodeInfo struct {
	DeviceName      string
	HardwareVersion string
	SoftwareVersion string
	UpdateNeeded    *bool // nil if the installed version could not be parsed
}

// NodeSummary is the read-only view of a node the external API (HTTP
// handlers, CLIs) is built on: `get_node(name) -> { locator_state,
// product_name, info{...}, pins[] }`.
type NodeSummary struct {
	Name         string
	ProductName  string
	LocatorState *bool // nil if the node has no locator
	Info         NodeInfo
	Pins         []string
}

// EnqueueFlash submits a firmware image for writing to the named node,
// returning immediately; call Wait on the result to block for completion.
// Jobs run strictly one at a time regardless of how many are enqueued
// concurrently.
func (m *Master) EnqueueFlash(nodeName string, region FlashRegion, image []byte) *FlashJob {
	return m.flashQueue.Enqueue(nodeName, region, image)
}

// ListNodes returns the human name of every currently registered node,
// sorted: the external API's `list_nodes() -> [name]`.
func (m *Master) ListNodes() []string {
	return m.registry.Names()
}

// GetNode returns a snapshot of the named node's directory-derived state.
// ErrUnknownNode if name isn't currently registered.
func (m *Master) GetNode(name string) (NodeSummary, error) {
	node, err := m.registry.ByName(name)
	if err != nil {
		return NodeSummary{}, err
	}

	summary := NodeSummary{
		Name:        node.Name(),
		ProductName: node.Product.NamePrefix,
		Pins:        node.PinNames(),
	}

	if node.OD == nil {
		return summary, nil
	}

	summary.Info = NodeInfo{
		DeviceName:      node.OD.Identity.DeviceName,
		HardwareVersion: node.OD.Identity.HardwareVersion,
		SoftwareVersion: node.OD.Identity.SoftwareVersion,
	}
	if installed, err := product.ParseFirmwareVersion(node.OD.Identity.SoftwareVersion); err == nil {
		needs := node.Product.NeedsFirmwareUpdate(installed)
		summary.Info.UpdateNeeded = &needs
	}

	if node.OD.Locator != nil {
		if on, err := node.OD.Locator.State(node.sdo); err == nil {
			summary.LocatorState = &on
		}
	}

	return summary, nil
}

// Run connects the bus and blocks running discovery, liveness and link
// watching until ctx is cancelled or the bus manager hits a fatal transport
// error.
func (m *Master) Run(ctx context.Context) error {
	if err := m.link.AwaitUp(ctx); err != nil {
		return err
	}
	if err := m.bm.Start(ctx); err != nil {
		return err
	}
	defer m.bm.Stop()

	go m.link.Run(ctx)
	go m.registry.RunLiveness(m.stopLiveness, m.logger)
	go m.flashQueue.Run(ctx)
	defer close(m.stopLiveness)

	ticker := time.NewTicker(discoveryPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.bm.Done():
			return m.bm.Err()
		case <-m.link.Down():
			m.logger.Warn("link down, pausing discovery")
			if err := m.link.AwaitUp(ctx); err != nil {
				return err
			}
			m.logger.Info("link restored")
		case <-ticker.C:
			m.discoverOnce()
		}
	}
}

// discoverOnce runs one fast-scan attempt. Any unconfigured node found is
// assigned the lowest free id, enumerated, registered and cached. Failures
// are logged; the next tick tries again rather than aborting the master.
func (m *Master) discoverOnce() {
	if err := m.lssEng.SwitchGlobal(LSSModeConfiguration); err != nil {
		m.logger.Error("switch global (configuration)", "err", err)
		return
	}

	known := append(m.registry.KnownAddresses(), m.cache.Addresses()...)
	addr, found, err := m.lssEng.FastScanKnownRangeAll(known)
	if err != nil {
		m.logger.Error("fast scan", "err", err)
		return
	}
	if !found {
		if err := m.lssEng.SwitchGlobal(LSSModeOperation); err != nil {
			m.logger.Error("switch global (operation)", "err", err)
		}
		return
	}

	nodeID, err := m.registry.LowestFreeID()
	if err != nil {
		m.logger.Error("no free node id for newly discovered node", "address", addr.String())
		return
	}

	ok, err := m.lssEng.ConfigureNodeID(nodeID)
	if err != nil || !ok {
		m.logger.Error("configure node id", "address", addr.String(), "err", err)
		return
	}

	if err := m.lssEng.SwitchGlobal(LSSModeOperation); err != nil {
		m.logger.Error("switch global (operation)", "err", err)
	}

	node, err := newNode(addr, nodeID, m.bm, m.logger)
	if err != nil {
		m.logger.Error("creating node", "address", addr.String(), "err", err)
		return
	}
	if m.cfg.Timeouts.SDO != 0 {
		node.sdo.SetTimeout(m.cfg.Timeouts.SDO)
	}
	m.registry.BeginSetup(node)

	if err := node.EnumerateDirectory(m.logger); err != nil {
		m.logger.Error("enumerating object directory", "address", addr.String(), "err", err)
		m.registry.AbandonSetup(node)
		node.Close()
		return
	}

	m.registry.CommitSetup(node)
	m.cache.Add(addr)
	m.logger.Info("node discovered", "name", node.Name(), "node_id", nodeID, "address", addr.String())
}

package lss

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	iobus "github.com/linux-automation/lxa-iobus"
)

// Cache persists previously-seen factory addresses to a JSON file, biasing
// future fast-scans toward known hardware. Grounded on
// load_lss_address_cache/write_lss_address_cache: tolerate a missing or
// corrupt file (treat as empty) rather than fail discovery.
type Cache struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	addr []iobus.FactoryAddress
}

// NewCache loads path, if set, best-effort. An empty path disables
// persistence entirely (addresses are kept in memory only for the process
// lifetime).
func NewCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{path: path, logger: logger.With("component", "lss_cache")}
	c.load()
	return c
}

func (c *Cache) load() {
	if c.path == "" {
		c.logger.Info("no lss address cache file set, skipping load")
		return
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Info("lss address cache file does not exist, starting empty", "path", c.path)
		} else {
			c.logger.Error("reading lss address cache", "path", c.path, "err", err)
		}
		return
	}

	var raw [][4]uint32
	if err := json.Unmarshal(data, &raw); err != nil {
		c.logger.Error("corrupt lss address cache, starting empty", "path", c.path, "err", err)
		return
	}

	addrs := make([]iobus.FactoryAddress, len(raw))
	for i, f := range raw {
		addrs[i] = iobus.FactoryAddressFromFields(f)
	}
	c.addr = addrs
}

// Addresses returns a snapshot of the cached addresses.
func (c *Cache) Addresses() []iobus.FactoryAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]iobus.FactoryAddress(nil), c.addr...)
}

// Add records addr if not already present and persists the cache
// best-effort.
func (c *Cache) Add(addr iobus.FactoryAddress) {
	c.mu.Lock()
	for _, a := range c.addr {
		if a == addr {
			c.mu.Unlock()
			return
		}
	}
	c.addr = append(c.addr, addr)
	snapshot := append([]iobus.FactoryAddress(nil), c.addr...)
	c.mu.Unlock()

	c.save(snapshot)
}

func (c *Cache) save(addrs []iobus.FactoryAddress) {
	if c.path == "" {
		return
	}

	raw := make([][4]uint32, len(addrs))
	for i, a := range addrs {
		raw[i] = a.Fields()
	}

	data, err := json.Marshal(raw)
	if err != nil {
		c.logger.Error("encoding lss address cache", "err", err)
		return
	}

	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		c.logger.Error("writing lss address cache", "path", c.path, "err", err)
	}
}

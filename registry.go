package iobus

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// livenessFailureLimit is the number of consecutive failed ping cycles a
// node is allowed before the next failure evicts it: two consecutive failed
// cycles are tolerated (a single missed response is common on a busy bus),
// and eviction happens on the third consecutive failure.
const livenessFailureLimit = 2

// Registry holds every currently-configured node, indexed by assigned id and
// by human name, plus a transient "setup slot" for a node whose id was just
// assigned but whose object directory hasn't finished enumerating — its SDO
// replies must still route correctly even though it isn't public yet.
type Registry struct {
	mu       sync.Mutex
	byID     map[uint8]*Node
	byName   map[string]*Node
	failures map[uint8]int

	setupMu sync.Mutex
	setup   *Node
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[uint8]*Node),
		byName:   make(map[string]*Node),
		failures: make(map[uint8]int),
	}
}

// BeginSetup places node in the transient setup slot, making its SDO client
// reachable (already subscribed at construction) without exposing it to
// ByID/ByName yet.
func (r *Registry) BeginSetup(node *Node) {
	r.setupMu.Lock()
	r.setup = node
	r.setupMu.Unlock()
}

// CommitSetup promotes the node in the setup slot to a public, registered
// node. No-op if the setup slot is empty or holds a different node.
func (r *Registry) CommitSetup(node *Node) {
	r.setupMu.Lock()
	if r.setup == node {
		r.setup = nil
	}
	r.setupMu.Unlock()

	node.touch()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[node.NodeID] = node
	r.byName[node.Name()] = node
	r.failures[node.NodeID] = 0
}

// AbandonSetup clears the setup slot without registering the node, used
// when directory enumeration fails outright.
func (r *Registry) AbandonSetup(node *Node) {
	r.setupMu.Lock()
	if r.setup == node {
		r.setup = nil
	}
	r.setupMu.Unlock()
}

// ByID returns the registered node with the given id, or nil.
func (r *Registry) ByID(id uint8) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

// ByName returns the registered node with the given human name, or
// ErrUnknownNode.
func (r *Registry) ByName(name string) (*Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byName[name]
	if !ok {
		return nil, ErrUnknownNode
	}
	return n, nil
}

// Names returns the human name of every registered node, sorted, for the
// external API's `list_nodes() -> [name]`.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KnownAddresses returns the factory address of every known node, including
// the one currently in the setup slot, for use as fast-scan discovery bias.
func (r *Registry) KnownAddresses() []FactoryAddress {
	r.mu.Lock()
	addrs := make([]FactoryAddress, 0, len(r.byID))
	for _, n := range r.byID {
		addrs = append(addrs, n.Address)
	}
	r.mu.Unlock()

	r.setupMu.Lock()
	if r.setup != nil {
		addrs = append(addrs, r.setup.Address)
	}
	r.setupMu.Unlock()
	return addrs
}

// Evict drops a registered node without pinging it first, used when a node
// is known to have gone away out-of-band (e.g. rebooting into or out of the
// ISP bootloader during flashing). No-op if name isn't currently registered.
func (r *Registry) Evict(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byName[name]
	if !ok {
		return
	}
	delete(r.byID, n.NodeID)
	delete(r.byName, name)
	delete(r.failures, n.NodeID)
}

// HasID reports whether id is already in use (registered or mid-setup).
func (r *Registry) HasID(id uint8) bool {
	r.mu.Lock()
	_, ok := r.byID[id]
	r.mu.Unlock()
	if ok {
		return true
	}
	r.setupMu.Lock()
	defer r.setupMu.Unlock()
	return r.setup != nil && r.setup.NodeID == id
}

// LowestFreeID returns the lowest unused id in [MinNodeID, MaxNodeID] \
// {ISPNodeID}, or ErrNodeIDExhausted.
func (r *Registry) LowestFreeID() (uint8, error) {
	for id := MinNodeID; id <= MaxNodeID; id++ {
		if id == ISPNodeID {
			continue
		}
		if !r.HasID(id) {
			return id, nil
		}
	}
	return 0, ErrNodeIDExhausted
}

// RunLiveness pings every registered node every 2 seconds; a node is evicted
// once it has failed livenessFailureLimit+1 consecutive cycles.
func (r *Registry) RunLiveness(stop <-chan struct{}, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "node_registry")

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.pingAll(logger)
		}
	}
}

func (r *Registry) pingAll(logger *slog.Logger) {
	r.mu.Lock()
	nodes := make([]*Node, 0, len(r.byID))
	for id, n := range r.byID {
		if id == ISPNodeID {
			continue
		}
		nodes = append(nodes, n)
	}
	r.mu.Unlock()

	for _, n := range nodes {
		if err := n.Ping(); err != nil {
			r.recordFailure(n, logger)
			continue
		}
		n.touch()
		r.mu.Lock()
		r.failures[n.NodeID] = 0
		r.mu.Unlock()
	}
}

func (r *Registry) recordFailure(n *Node, logger *slog.Logger) {
	r.mu.Lock()
	r.failures[n.NodeID]++
	count := r.failures[n.NodeID]
	r.mu.Unlock()

	if count <= livenessFailureLimit {
		logger.Warn("node did not respond, will retry", "node_id", n.NodeID, "failures", count)
		return
	}

	logger.Warn("evicting unresponsive node", "node_id", n.NodeID, "name", n.Name())
	r.mu.Lock()
	delete(r.byID, n.NodeID)
	delete(r.byName, n.Name())
	delete(r.failures, n.NodeID)
	r.mu.Unlock()
	n.Close()
}

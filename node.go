package iobus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/linux-automation/lxa-iobus/pkg/od"
	"github.com/linux-automation/lxa-iobus/pkg/product"
	"github.com/linux-automation/lxa-iobus/pkg/sdo"
)

// Node is a live, configured device on the bus: its factory address, its
// currently assigned node id, its enumerated object directory, and the
// product descriptor its address matched. Grounded on the association
// described by bus_node.py's LxaBusNode plus products.py's matching.
type Node struct {
	Address FactoryAddress
	NodeID  uint8
	Product product.Descriptor
	OD      *od.Directory

	sdo *sdo.Client

	lastSeenMu sync.Mutex
	lastSeen   time.Time
}

func newNode(addr FactoryAddress, nodeID uint8, bm *BusManager, logger *slog.Logger) (*Node, error) {
	client, err := sdo.NewClient(nodeID, bm, logger)
	if err != nil {
		return nil, err
	}
	return &Node{
		Address: addr,
		NodeID:  nodeID,
		Product: product.Find(addr),
		sdo:     client,
	}, nil
}

// Name returns the product descriptor's human-readable name for this unit.
func (n *Node) Name() string { return n.Product.Name(n.Address) }

// EnumerateDirectory scans the node's object directory, populating OD.
// Failures enumerating one PDO group are logged and do not abort the scan
// as a whole (see pkg/od.Scan); a hard failure here (identity objects
// unreadable) is returned to the caller.
func (n *Node) EnumerateDirectory(logger *slog.Logger) error {
	dir, err := od.Scan(n.sdo, logger)
	if err != nil {
		return err
	}
	n.OD = dir
	return nil
}

// Read and Write expose the node's raw SDO transport for protocols not
// covered by a typed od wrapper (e.g. pkg/isp against node id 125).
func (n *Node) Read(index uint16, subIndex uint8) ([]byte, error) {
	return n.sdo.Read(index, subIndex)
}

func (n *Node) Write(index uint16, subIndex uint8, data []byte) error {
	return n.sdo.Write(index, subIndex, data)
}

// Ping performs a trivial read to check liveness: the locator object if the
// directory advertises one, otherwise the mandatory device-name object.
func (n *Node) Ping() error {
	if n.OD != nil && n.OD.Locator != nil {
		_, err := n.OD.Locator.State(n.sdo)
		return err
	}
	_, err := n.Read(0x1008, 0)
	return err
}

// touch records a successful contact, used by the registry's liveness loop.
func (n *Node) touch() {
	n.lastSeenMu.Lock()
	n.lastSeen = time.Now()
	n.lastSeenMu.Unlock()
}

// LastSeen returns the time of the most recent successful contact.
func (n *Node) LastSeen() time.Time {
	n.lastSeenMu.Lock()
	defer n.lastSeenMu.Unlock()
	return n.lastSeen
}

// Close releases the node's SDO subscription.
func (n *Node) Close() {
	n.sdo.Close()
}

package iobus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linux-automation/lxa-iobus/pkg/isp"
	"github.com/linux-automation/lxa-iobus/pkg/od"
)

// triggerTimeout bounds the wait for a reply to the bootloader-jump write,
// which normally gets none: the node reboots before it can answer.
const triggerTimeout = 100 * time.Millisecond

// FlashRegion selects which half of the device a flash job targets: the
// application image (erased/written independently of the config region).
type FlashRegion int

const (
	FlashRegionFlash  FlashRegion = iota // application image, start 0, <= isp.FlashRegionSize
	FlashRegionConfig                    // config block, start isp.FlashRegionSize, <= isp.ConfigRegionSize
)

// ErrImageTooLarge is returned when a job's image exceeds its region's size.
var ErrImageTooLarge = errors.New("iobus: firmware image exceeds region size")

// FlashJob is one enqueued "put node into bootloader mode and write this
// image" request.
type FlashJob struct {
	NodeName string
	Region   FlashRegion
	Image    []byte

	done chan error
}

// Wait blocks until the job has been processed and returns its outcome.
func (j *FlashJob) Wait() error { return <-j.done }

// FlashQueue accepts flash jobs and runs them strictly one at a time on a
// single worker goroutine: the bootloader only ever has one ISP session
// live on node id 125, so two concurrent flashes would collide on the same
// reserved node id. Grounded on server.py's single-worker job queue
// (asyncio.Queue + one consumer task) ahead of the HTTP layer this module
// doesn't implement.
type FlashQueue struct {
	registry *Registry
	bm       *BusManager
	logger   *slog.Logger
	jobs     chan *FlashJob
}

// NewFlashQueue returns a queue bound to registry (to resolve node names)
// and bm (to talk to the bootloader's reserved node id). Call Run to start
// the worker.
func NewFlashQueue(registry *Registry, bm *BusManager, logger *slog.Logger) *FlashQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlashQueue{
		registry: registry,
		bm:       bm,
		logger:   logger.With("component", "flash_queue"),
		jobs:     make(chan *FlashJob, 16),
	}
}

// Enqueue submits a job and returns it immediately; call Wait on the result
// to block for completion.
func (q *FlashQueue) Enqueue(nodeName string, region FlashRegion, image []byte) *FlashJob {
	job := &FlashJob{NodeName: nodeName, Region: region, Image: image, done: make(chan error, 1)}
	q.jobs <- job
	return job
}

// Run drains jobs sequentially until ctx is cancelled.
func (q *FlashQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			job.done <- q.process(job)
		}
	}
}

func (q *FlashQueue) process(job *FlashJob) error {
	start, limit := uint32(0), uint32(isp.FlashRegionSize)
	fixChecksum := true
	if job.Region == FlashRegionConfig {
		start, limit = isp.FlashRegionSize, isp.ConfigRegionSize
		fixChecksum = false
	}
	if len(job.Image) > int(limit) {
		return fmt.Errorf("%w: %d bytes, region holds %d", ErrImageTooLarge, len(job.Image), limit)
	}

	target, err := q.registry.ByName(job.NodeName)
	if err != nil {
		return err
	}

	if target.OD == nil || target.OD.Bootloader == nil {
		return fmt.Errorf("iobus: node %q does not advertise a bootloader trigger", job.NodeName)
	}
	bootloader := od.Bootloader{}
	// No response is expected: the node reboots into ISP mode before it can
	// reply, so a transport timeout here is the normal, successful case. The
	// node's assigned id is gone once it reboots; drop it now rather than
	// wait for the liveness loop to notice.
	target.sdo.SetTimeout(triggerTimeout)
	_ = bootloader.Trigger(target.sdo)
	target.Close()
	q.registry.Evict(job.NodeName)

	ispNode, err := newNode(target.Address, ISPNodeID, q.bm, q.logger)
	if err != nil {
		return fmt.Errorf("iobus: opening bootloader session: %w", err)
	}
	defer ispNode.Close()

	flasher := isp.NewFlasher(ispNode)
	if err := flasher.FlashImage(start, job.Image, fixChecksum); err != nil {
		return fmt.Errorf("iobus: flashing %q: %w", job.NodeName, err)
	}

	if job.Region == FlashRegionFlash {
		if err := flasher.Go(0); err != nil {
			return fmt.Errorf("iobus: jumping into flashed image on %q: %w", job.NodeName, err)
		}
	}
	return nil
}

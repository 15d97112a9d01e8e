package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Bilal4700/Smart-Contract-Lottery/domain/interfaces"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/services"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrUnknownRequest is returned when a fulfillment references a request
	// that was never issued or was already fulfilled
	ErrUnknownRequest = errors.New("fulfillment references unknown or already-fulfilled request")

	// ErrWordCountMismatch is returned when a fulfillment carries a different
	// number of words than the request asked for
	ErrWordCountMismatch = errors.New("fulfillment word count does not match request")
)

// Coordinator owns request-identity correlation for oracle fulfillments. It
// assigns correlation handles, tracks outstanding requests and guarantees a
// request is completed at most once, so stale or forged fulfillments are
// rejected before they ever reach the consumer.
type Coordinator struct {
	mu       sync.Mutex
	consumer interfaces.RandomnessConsumer
	nextID   uint64
	pending  map[uint64]interfaces.RandomnessRequest
}

// NewCoordinator creates a coordinator delivering fulfillments to consumer
func NewCoordinator(consumer interfaces.RandomnessConsumer) *Coordinator {
	return &Coordinator{
		consumer: consumer,
		pending:  make(map[uint64]interfaces.RandomnessRequest),
	}
}

// Track registers a new outstanding request and returns its correlation handle
func (c *Coordinator) Track(req interfaces.RandomnessRequest) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.pending[id] = req
	return id
}

// Abandon forgets a tracked request whose submission failed. A fulfillment
// for an abandoned handle is treated as unknown.
func (c *Coordinator) Abandon(requestID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, requestID)
}

// Pending returns the number of outstanding requests
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Fulfill delivers a fulfillment to the consumer. The request is removed from
// the pending table before the consumer runs, so a concurrent or repeated
// fulfillment for the same handle fails with ErrUnknownRequest while the
// consumer executes.
//
// If the consumer fails before committing the draw, the entry is restored so
// a redelivered fulfillment can complete it. ErrPayoutFailed is the exception:
// the round was already reset, so a retry would draw a second winner, and the
// handle stays consumed.
func (c *Coordinator) Fulfill(ctx context.Context, requestID uint64, words []uint64) error {
	c.mu.Lock()
	req, ok := c.pending[requestID]
	if !ok {
		c.mu.Unlock()
		log.WithField("requestID", requestID).Warn("Rejected fulfillment for unknown request")
		return ErrUnknownRequest
	}
	if uint32(len(words)) != req.NumWords {
		c.mu.Unlock()
		return fmt.Errorf("%w: got %d, want %d", ErrWordCountMismatch, len(words), req.NumWords)
	}
	delete(c.pending, requestID)
	c.mu.Unlock()

	err := c.consumer.HandleRandomWords(ctx, requestID, words)
	if err != nil && !errors.Is(err, services.ErrPayoutFailed) {
		c.mu.Lock()
		c.pending[requestID] = req
		c.mu.Unlock()

		log.WithError(err).WithField("requestID", requestID).
			Warn("Fulfillment failed before completing the draw, request kept pending for redelivery")
	}
	return err
}

package oracle

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/Bilal4700/Smart-Contract-Lottery/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

var wordBound = new(big.Int).Lsh(big.NewInt(1), 64)

// LocalOracle is an in-process randomness oracle for development and tests.
// It honours the request's confirmation depth as a simulated per-block delay
// and draws words from crypto/rand. Each request receives exactly one
// fulfillment callback.
type LocalOracle struct {
	coordinator *Coordinator
	blockTime   time.Duration
}

// NewLocalOracle creates a local oracle delivering to consumer. blockTime is
// the simulated duration of one confirmation.
func NewLocalOracle(consumer interfaces.RandomnessConsumer, blockTime time.Duration) *LocalOracle {
	return &LocalOracle{
		coordinator: NewCoordinator(consumer),
		blockTime:   blockTime,
	}
}

// RequestRandomWords issues a request and schedules its asynchronous fulfillment
func (o *LocalOracle) RequestRandomWords(ctx context.Context, req interfaces.RandomnessRequest) (uint64, error) {
	requestID := o.coordinator.Track(req)

	go func() {
		time.Sleep(time.Duration(req.RequestConfirmations) * o.blockTime)

		words, err := randomWords(int(req.NumWords))
		if err != nil {
			o.coordinator.Abandon(requestID)
			log.WithError(err).WithField("requestID", requestID).Error("Failed to generate random words")
			return
		}

		// Fulfillment is out-of-band relative to the request call, so it does
		// not inherit the request context.
		if err := o.coordinator.Fulfill(context.Background(), requestID, words); err != nil {
			log.WithError(err).WithField("requestID", requestID).Error("Local oracle fulfillment failed")
		}
	}()

	log.WithFields(log.Fields{
		"requestID":     requestID,
		"confirmations": req.RequestConfirmations,
		"numWords":      req.NumWords,
	}).Debug("Local oracle request issued")

	return requestID, nil
}

// randomWords draws n uniform 64-bit words from crypto/rand
func randomWords(n int) ([]uint64, error) {
	words := make([]uint64, n)
	for i := range words {
		v, err := rand.Int(rand.Reader, wordBound)
		if err != nil {
			return nil, fmt.Errorf("failed to generate random word: %w", err)
		}
		words[i] = v.Uint64()
	}
	return words, nil
}

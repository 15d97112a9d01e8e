package application

import (
	"context"
	"errors"
	"time"

	"github.com/Bilal4700/Smart-Contract-Lottery/domain/interfaces"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/services"

	log "github.com/sirupsen/logrus"
)

// UpkeepWorker is the automation agent that polls the raffle's eligibility
// predicate and triggers a draw when it holds. Retrying is its whole job: the
// engine never retries internally.
type UpkeepWorker struct {
	raffle       interfaces.RaffleService
	pollInterval time.Duration
}

// NewUpkeepWorker creates a new upkeep worker
func NewUpkeepWorker(raffle interfaces.RaffleService, pollInterval time.Duration) *UpkeepWorker {
	return &UpkeepWorker{
		raffle:       raffle,
		pollInterval: pollInterval,
	}
}

// Start begins the upkeep polling loop and returns a stop function
func (w *UpkeepWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithField("pollInterval", w.pollInterval).Info("Upkeep worker started")

		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Upkeep worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Upkeep worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				w.pollOnce(ctx)
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// pollOnce runs a single check-then-trigger cycle
func (w *UpkeepWorker) pollOnce(ctx context.Context) {
	needed, _, err := w.raffle.CheckUpkeep(ctx)
	if err != nil {
		log.WithError(err).Error("Upkeep check failed")
		return
	}
	if !needed {
		return
	}

	requestID, err := w.raffle.PerformUpkeep(ctx)
	if err != nil {
		// Eligibility is re-evaluated inside PerformUpkeep; losing the race
		// between check and trigger is normal, not an operational fault.
		var notNeeded *services.UpkeepNotNeededError
		if errors.As(err, &notNeeded) {
			log.WithFields(log.Fields{
				"balance":      notNeeded.Balance,
				"participants": notNeeded.NumParticipants,
				"state":        notNeeded.State.String(),
			}).Debug("Upkeep no longer needed at trigger time")
			return
		}
		log.WithError(err).Error("Failed to trigger raffle draw")
		return
	}

	log.WithField("requestID", requestID).Info("Upkeep worker triggered raffle draw")
}

package application

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Bilal4700/Smart-Contract-Lottery/domain/interfaces"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/services"
	"github.com/Bilal4700/Smart-Contract-Lottery/repository"

	log "github.com/sirupsen/logrus"
)

// MessageSubscriber is the transport surface the entry consumer needs
type MessageSubscriber interface {
	Subscribe(subject string, handler func([]byte) error) error
}

// EntryMessage is the wire format of a raffle entry request
type EntryMessage struct {
	EventID   string `json:"event_id"`
	AccountID string `json:"account_id"`
	Payment   int64  `json:"payment"`
}

// EntryConsumer feeds raffle entries from a message subject into the engine
type EntryConsumer struct {
	subscriber MessageSubscriber
	raffle     interfaces.RaffleService
	subject    string
}

// NewEntryConsumer creates a new entry consumer
func NewEntryConsumer(subscriber MessageSubscriber, raffle interfaces.RaffleService, subject string) *EntryConsumer {
	return &EntryConsumer{
		subscriber: subscriber,
		raffle:     raffle,
		subject:    subject,
	}
}

// Start subscribes to the entry subject
func (c *EntryConsumer) Start(ctx context.Context) error {
	return c.subscriber.Subscribe(c.subject, func(data []byte) error {
		return c.handleEntry(ctx, data)
	})
}

// handleEntry processes one entry message. Business rejections are final and
// acknowledged; redelivering an entry that was refused would not change the
// outcome.
func (c *EntryConsumer) handleEntry(ctx context.Context, data []byte) error {
	var msg EntryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.WithError(err).Error("Failed to unmarshal entry message, dropping")
		return nil
	}

	if err := c.raffle.Enter(ctx, msg.AccountID, msg.Payment); err != nil {
		switch {
		case errors.Is(err, services.ErrEntryFeeTooLow),
			errors.Is(err, services.ErrRaffleNotOpen),
			errors.Is(err, repository.ErrInsufficientFunds),
			errors.Is(err, repository.ErrAccountNotFound),
			errors.Is(err, repository.ErrAccountFrozen):
			log.WithError(err).WithFields(log.Fields{
				"accountID": msg.AccountID,
				"payment":   msg.Payment,
				"eventID":   msg.EventID,
			}).Warn("Raffle entry rejected")
			return nil
		default:
			log.WithError(err).WithFields(log.Fields{
				"accountID": msg.AccountID,
				"eventID":   msg.EventID,
			}).Error("Failed to process raffle entry")
			return err
		}
	}

	return nil
}

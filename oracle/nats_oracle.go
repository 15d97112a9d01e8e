package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Bilal4700/Smart-Contract-Lottery/domain/interfaces"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/services"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MessageBus is the transport surface the NATS oracle needs. Satisfied by
// NATSClient; narrowed for testability.
type MessageBus interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(subject string, handler func([]byte) error) error
}

// RequestEnvelope is the wire format of an oracle draw request
type RequestEnvelope struct {
	EventID              string    `json:"event_id"`
	RequestID            uint64    `json:"request_id"`
	KeyHash              string    `json:"key_hash"`
	SubscriptionID       uint64    `json:"subscription_id"`
	CallbackGasLimit     uint32    `json:"callback_gas_limit"`
	RequestConfirmations uint16    `json:"request_confirmations"`
	NumWords             uint32    `json:"num_words"`
	NativePayment        bool      `json:"native_payment"`
	ReplySubject         string    `json:"reply_subject"`
	RequestedAt          time.Time `json:"requested_at"`
}

// FulfillmentEnvelope is the wire format of an oracle fulfillment
type FulfillmentEnvelope struct {
	EventID     string    `json:"event_id"`
	RequestID   uint64    `json:"request_id"`
	Words       []uint64  `json:"words"`
	FulfilledAt time.Time `json:"fulfilled_at"`
}

// NATSOracle implements the RandomnessOracle interface over a NATS JetStream
// transport. Requests are published to a per-key-hash subject; the oracle
// service replies on this consumer's fulfillment subject. Correlation and
// at-most-once delivery are enforced by the coordinator, so duplicate or
// stale fulfillments are dropped at this layer.
type NATSOracle struct {
	bus          MessageBus
	coordinator  *Coordinator
	consumerName string
}

// NewNATSOracle creates a NATS-backed oracle client delivering fulfillments
// to consumer. consumerName scopes the fulfillment subject for this engine.
func NewNATSOracle(bus MessageBus, consumer interfaces.RandomnessConsumer, consumerName string) *NATSOracle {
	return &NATSOracle{
		bus:          bus,
		coordinator:  NewCoordinator(consumer),
		consumerName: consumerName,
	}
}

// FulfillmentSubject returns the subject this consumer listens on
func (o *NATSOracle) FulfillmentSubject() string {
	return fmt.Sprintf("vrf.fulfillment.%s", o.consumerName)
}

// Start subscribes to the fulfillment subject. Must be called before the
// first request is issued.
func (o *NATSOracle) Start(ctx context.Context) error {
	return o.bus.Subscribe(o.FulfillmentSubject(), o.handleFulfillment)
}

// RequestRandomWords publishes a draw request and returns its correlation handle
func (o *NATSOracle) RequestRandomWords(ctx context.Context, req interfaces.RandomnessRequest) (uint64, error) {
	requestID := o.coordinator.Track(req)

	envelope := RequestEnvelope{
		EventID:              uuid.New().String(),
		RequestID:            requestID,
		KeyHash:              req.KeyHash,
		SubscriptionID:       req.SubscriptionID,
		CallbackGasLimit:     req.CallbackGasLimit,
		RequestConfirmations: req.RequestConfirmations,
		NumWords:             req.NumWords,
		NativePayment:        req.NativePayment,
		ReplySubject:         o.FulfillmentSubject(),
		RequestedAt:          time.Now().UTC(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		o.coordinator.Abandon(requestID)
		return 0, fmt.Errorf("failed to marshal request envelope: %w", err)
	}

	subject := fmt.Sprintf("vrf.request.%s", req.KeyHash)
	if err := o.bus.Publish(ctx, subject, data); err != nil {
		// The request never reached the oracle, so its handle must not
		// accept a fulfillment later.
		o.coordinator.Abandon(requestID)
		return 0, fmt.Errorf("failed to publish oracle request: %w", err)
	}

	log.WithFields(log.Fields{
		"requestID": requestID,
		"eventID":   envelope.EventID,
		"subject":   subject,
	}).Info("Oracle randomness request published")

	return requestID, nil
}

// handleFulfillment processes one fulfillment message. Unknown or duplicate
// request handles are logged and acknowledged so the transport does not
// redeliver them; transient consumer errors propagate so the redelivered
// message can complete the draw the coordinator kept pending.
func (o *NATSOracle) handleFulfillment(data []byte) error {
	var envelope FulfillmentEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.WithError(err).Error("Failed to unmarshal fulfillment envelope, dropping")
		return nil
	}

	err := o.coordinator.Fulfill(context.Background(), envelope.RequestID, envelope.Words)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnknownRequest), errors.Is(err, ErrWordCountMismatch):
		log.WithError(err).WithFields(log.Fields{
			"requestID": envelope.RequestID,
			"eventID":   envelope.EventID,
		}).Warn("Dropping invalid oracle fulfillment")
		return nil
	case errors.Is(err, services.ErrPayoutFailed):
		// The draw completed and the round reset; redelivering cannot pay the
		// winner. Funds stay in the holding account for manual recovery.
		log.WithError(err).WithFields(log.Fields{
			"requestID": envelope.RequestID,
			"eventID":   envelope.EventID,
		}).Error("Fulfillment completed with failed payout")
		return nil
	default:
		return err
	}
}

package bot

import (
	"context"
	"fmt"

	"github.com/Bilal4700/Smart-Contract-Lottery/domain/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds announcer configuration
type Config struct {
	Token     string
	ChannelID string
}

// Announcer posts raffle lifecycle messages to a Discord channel. It only
// observes the event bus; the engine never depends on it.
type Announcer struct {
	config  Config
	session *discordgo.Session
}

// New creates the announcer, opens the Discord session and subscribes to
// raffle events
func New(config Config, eventBus *events.Bus) (*Announcer, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages

	announcer := &Announcer{
		config:  config,
		session: dg,
	}

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	eventBus.Subscribe(events.EventTypeParticipantEntered, announcer.handleParticipantEntered)
	eventBus.Subscribe(events.EventTypeDrawStarted, announcer.handleDrawStarted)
	eventBus.Subscribe(events.EventTypeWinnerPicked, announcer.handleWinnerPicked)
	eventBus.Subscribe(events.EventTypePayoutFailed, announcer.handlePayoutFailed)

	log.WithField("channelID", config.ChannelID).Info("Discord announcer started")
	return announcer, nil
}

// Close shuts down the Discord session
func (a *Announcer) Close() error {
	return a.session.Close()
}

func (a *Announcer) handleParticipantEntered(ctx context.Context, event events.Event) {
	e, ok := event.(events.ParticipantEnteredEvent)
	if !ok {
		return
	}
	a.post(fmt.Sprintf("🎟️ **%s** entered the raffle (%d in this round)", e.AccountID, e.NumParticipants))
}

func (a *Announcer) handleDrawStarted(ctx context.Context, event events.Event) {
	e, ok := event.(events.DrawStartedEvent)
	if !ok {
		return
	}
	a.post(fmt.Sprintf("🎲 Draw started! %d participants, pot %d (request %d)",
		e.NumParticipants, e.PotAmount, e.RequestID))
}

func (a *Announcer) handleWinnerPicked(ctx context.Context, event events.Event) {
	e, ok := event.(events.WinnerPickedEvent)
	if !ok {
		return
	}
	a.post(fmt.Sprintf("🏆 **%s** won the raffle and takes the pot of %d!", e.WinnerID, e.PotAmount))
}

func (a *Announcer) handlePayoutFailed(ctx context.Context, event events.Event) {
	e, ok := event.(events.PayoutFailedEvent)
	if !ok {
		return
	}
	a.post(fmt.Sprintf("⚠️ Payout of %d to **%s** failed: %s — funds held for manual recovery",
		e.Amount, e.WinnerID, e.Reason))
}

func (a *Announcer) post(message string) {
	if _, err := a.session.ChannelMessageSend(a.config.ChannelID, message); err != nil {
		log.WithError(err).WithField("channelID", a.config.ChannelID).
			Error("Failed to post raffle announcement")
	}
}

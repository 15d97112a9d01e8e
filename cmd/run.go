package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Bilal4700/Smart-Contract-Lottery/application"
	"github.com/Bilal4700/Smart-Contract-Lottery/bot"
	"github.com/Bilal4700/Smart-Contract-Lottery/config"
	"github.com/Bilal4700/Smart-Contract-Lottery/database"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/entities"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/events"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/interfaces"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/services"
	"github.com/Bilal4700/Smart-Contract-Lottery/oracle"
	"github.com/Bilal4700/Smart-Contract-Lottery/repository"
)

// deferredOracle breaks the construction cycle between the engine and the
// oracle: the engine needs an oracle to request from, the oracle needs the
// engine as its fulfillment consumer. Requests only flow after wiring
// completes, so the late binding is never observed.
type deferredOracle struct {
	inner interfaces.RandomnessOracle
}

func (d *deferredOracle) RequestRandomWords(ctx context.Context, req interfaces.RandomnessRequest) (uint64, error) {
	if d.inner == nil {
		return 0, fmt.Errorf("oracle not wired")
	}
	return d.inner.RequestRandomWords(ctx, req)
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting raffle service...")

	// Load configuration
	cfg := config.Get()

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize treasury
	var treasury interfaces.Treasury
	var db *database.DB
	if cfg.DatabaseURL != "" {
		log.Println("Connecting to database...")
		var err error
		db, err = database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		treasury = repository.NewTreasuryRepository(db)
		log.Println("Database connection established successfully")
	} else {
		log.Println("DATABASE_URL not set, using in-memory treasury (development only)")
		treasury = repository.NewMemoryTreasury()
	}

	if err := treasury.EnsureAccount(ctx, cfg.HoldingAccount); err != nil {
		return fmt.Errorf("failed to ensure holding account: %w", err)
	}

	// Initialize raffle engine
	drawConfig := entities.DrawConfig{
		EntryFee:             cfg.EntryFee,
		Interval:             cfg.Interval,
		KeyHash:              cfg.KeyHash,
		SubscriptionID:       cfg.SubscriptionID,
		CallbackGasLimit:     cfg.CallbackGasLimit,
		RequestConfirmations: cfg.RequestConfirmations,
		NumWords:             cfg.NumWords,
		NativePayment:        cfg.NativePayment,
	}
	oracleHandle := &deferredOracle{}
	engine, err := services.NewRaffleService(drawConfig, cfg.HoldingAccount, treasury, oracleHandle, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize raffle engine: %w", err)
	}
	log.Println("Raffle engine initialized successfully")

	// Initialize oracle transport
	var natsClient *oracle.NATSClient
	if cfg.NATSServers != "" {
		log.Println("Connecting to NATS...")
		natsClient = oracle.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		if err := natsClient.EnsureOracleStreams(); err != nil {
			return fmt.Errorf("failed to ensure oracle streams: %w", err)
		}

		natsOracle := oracle.NewNATSOracle(natsClient, engine, "raffle-engine")
		if err := natsOracle.Start(ctx); err != nil {
			return fmt.Errorf("failed to start oracle fulfillment subscription: %w", err)
		}
		oracleHandle.inner = natsOracle

		entryConsumer := application.NewEntryConsumer(natsClient, engine, cfg.EntrySubject)
		if err := entryConsumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start entry consumer: %w", err)
		}
		log.Println("NATS oracle and entry consumer started successfully")
	} else {
		log.Println("NATS_URL not set, using in-process local oracle (development only)")
		oracleHandle.inner = oracle.NewLocalOracle(engine, time.Second)
	}

	// Start upkeep worker
	stopUpkeep := application.NewUpkeepWorker(engine, cfg.UpkeepPollInterval).Start(ctx)

	// Start Discord announcer if configured
	var announcer *bot.Announcer
	if cfg.DiscordToken != "" && cfg.DiscordChannelID != "" {
		announcer, err = bot.New(bot.Config{
			Token:     cfg.DiscordToken,
			ChannelID: cfg.DiscordChannelID,
		}, eventBus)
		if err != nil {
			return fmt.Errorf("failed to initialize Discord announcer: %w", err)
		}
		log.Println("Discord announcer initialized successfully")
	}

	// Wait for context cancellation
	log.Printf("Raffle service is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down raffle service...")
	stopUpkeep()

	if announcer != nil {
		if err := announcer.Close(); err != nil {
			log.Printf("Error closing Discord announcer: %v", err)
		}
	}

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if db != nil {
		log.Println("Closing database connection...")
		db.Close()
	}

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}

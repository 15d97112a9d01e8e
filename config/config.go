package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Raffle configuration
	EntryFee       int64         // minimum entry payment in base units
	Interval       time.Duration // minimum time between draws
	HoldingAccount string        // treasury account holding the pot

	// Oracle request parameters
	KeyHash              string
	SubscriptionID       uint64
	CallbackGasLimit     uint32
	RequestConfirmations uint16
	NumWords             uint32
	NativePayment        bool

	// Infrastructure
	DatabaseURL  string // empty enables the in-memory treasury
	NATSServers  string // empty enables the in-process local oracle
	EntrySubject string // NATS subject carrying entry requests

	// Upkeep automation
	UpkeepPollInterval time.Duration

	// Discord announcements (optional)
	DiscordToken     string
	DiscordChannelID string

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Raffle defaults
		EntryFee:       10_000_000, // 0.01 unit at 9 decimals
		Interval:       30 * time.Second,
		HoldingAccount: "raffle-pot",

		// Oracle defaults
		KeyHash:              os.Getenv("VRF_KEY_HASH"),
		CallbackGasLimit:     500_000,
		RequestConfirmations: 3,
		NumWords:             1,
		NativePayment:        os.Getenv("VRF_NATIVE_PAYMENT") == "true",

		// Infrastructure
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		NATSServers:  os.Getenv("NATS_URL"),
		EntrySubject: "raffle.entries",

		UpkeepPollInterval: 5 * time.Second,

		// Discord
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if fee := os.Getenv("RAFFLE_ENTRY_FEE"); fee != "" {
		parsed, err := strconv.ParseInt(fee, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RAFFLE_ENTRY_FEE: %w", err)
		}
		config.EntryFee = parsed
	}
	if interval := os.Getenv("RAFFLE_INTERVAL"); interval != "" {
		parsed, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid RAFFLE_INTERVAL: %w", err)
		}
		config.Interval = parsed
	}
	if account := os.Getenv("RAFFLE_HOLDING_ACCOUNT"); account != "" {
		config.HoldingAccount = account
	}
	if subject := os.Getenv("RAFFLE_ENTRY_SUBJECT"); subject != "" {
		config.EntrySubject = subject
	}
	if subID := os.Getenv("VRF_SUBSCRIPTION_ID"); subID != "" {
		parsed, err := strconv.ParseUint(subID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid VRF_SUBSCRIPTION_ID: %w", err)
		}
		config.SubscriptionID = parsed
	}
	if gasLimit := os.Getenv("VRF_CALLBACK_GAS_LIMIT"); gasLimit != "" {
		parsed, err := strconv.ParseUint(gasLimit, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid VRF_CALLBACK_GAS_LIMIT: %w", err)
		}
		config.CallbackGasLimit = uint32(parsed)
	}
	if confirmations := os.Getenv("VRF_REQUEST_CONFIRMATIONS"); confirmations != "" {
		parsed, err := strconv.ParseUint(confirmations, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid VRF_REQUEST_CONFIRMATIONS: %w", err)
		}
		config.RequestConfirmations = uint16(parsed)
	}
	if words := os.Getenv("VRF_NUM_WORDS"); words != "" {
		parsed, err := strconv.ParseUint(words, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid VRF_NUM_WORDS: %w", err)
		}
		config.NumWords = uint32(parsed)
	}
	if poll := os.Getenv("UPKEEP_POLL_INTERVAL"); poll != "" {
		parsed, err := time.ParseDuration(poll)
		if err != nil {
			return nil, fmt.Errorf("invalid UPKEEP_POLL_INTERVAL: %w", err)
		}
		config.UpkeepPollInterval = parsed
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// The NATS oracle routes requests by key hash, so it cannot run
		// without one. The local oracle ignores it.
		if config.NATSServers != "" && config.KeyHash == "" {
			return nil, fmt.Errorf("VRF_KEY_HASH is required when NATS_URL is set")
		}
	}

	return config, nil
}

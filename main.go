package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bilal4700/Smart-Contract-Lottery/cmd"
	"github.com/Bilal4700/Smart-Contract-Lottery/database"
)

func main() {
	if len(os.Args) > 1 {
		if err := runSubcommand(os.Args[1], os.Args[2:]); err != nil {
			log.Fatalf("raffle %s: %v", os.Args[1], err)
		}
		return
	}

	// The bare binary runs the service until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error:", err)
	}
}

// runSubcommand dispatches maintenance subcommands
func runSubcommand(name string, args []string) error {
	switch name {
	case "migrate":
		return runMigrate(args)
	default:
		return fmt.Errorf("unknown subcommand %q (supported: migrate)", name)
	}
}

func runMigrate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: raffle migrate up|down [steps]|status")
	}
	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migrate action: %s", args[0])
	}
}

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cxlinux-ai/supportbot/internal/config"
	"github.com/cxlinux-ai/supportbot/internal/repository/postgres"
	"github.com/joho/godotenv"
)

func main() {
	source := flag.String("source", "file://migrations", "migration source URL")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Storage.Mode != "postgres" {
		fmt.Printf("Storage mode is %q, nothing to migrate\n", cfg.Storage.Mode)
		return
	}

	fmt.Printf("Migrating database at %s:%d...\n", cfg.Database.Host, cfg.Database.Port)

	if err := postgres.RunMigrations(cfg.Database.DSN(), *source); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
}

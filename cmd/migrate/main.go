package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"props-bible/config"
	"props-bible/core/store"
	"props-bible/core/utils"
)

func main() {
	statusOnly := flag.Bool("status", false, "print migration status as JSON and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalf("db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if *statusOnly {
		st, err := store.GetMigrationStatus(ctx, db)
		if err != nil {
			logger.Fatalf("status: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(st)
		return
	}
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		logger.Fatalf("migrations: %v", err)
	}
	logger.Printf("migrations applied")
}

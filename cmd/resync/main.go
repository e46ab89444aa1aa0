package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
	"github.com/IchiThe2nd/aidivalogger/internal/influx"
	"github.com/IchiThe2nd/aidivalogger/internal/status"
	syncer "github.com/IchiThe2nd/aidivalogger/internal/sync"
	"github.com/IchiThe2nd/aidivalogger/pkg/config"
)

// resync runs one forced full reconciliation pass and exits. Every record
// in the scan window is rewritten; the store's dedup absorbs what already
// exists. Useful after changing mapping tags or wiping the database.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Sync.ForceFullSync = true
	host := cfg.Controller.Hostname

	fmt.Println("Starting forced full resync...")

	store, err := influx.Connect(&cfg.Influx)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer store.Close()
	fmt.Printf("Connected to store %s (db=%s)\n", cfg.Influx.URL, cfg.Influx.Database)

	src := controller.NewClient(&cfg.Controller)

	reconciler := syncer.NewReconciler(src, store, host, cfg.Sync)
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		reconciler.Status = status.NewStore(redisClient)
	}

	reconciler.Run(context.Background())
	fmt.Println("Resync finished")
}

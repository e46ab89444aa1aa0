package main

import (
	"context"
	"fmt"
	"log"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
	syncer "github.com/IchiThe2nd/aidivalogger/internal/sync"
	"github.com/IchiThe2nd/aidivalogger/pkg/config"
)

// coverage scans the controller's retained history and reports how much of
// the configured window actually contains usable data. Read-only: nothing
// is written anywhere.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Printf("Scanning the last %d days (%d-day chunks) on %s...\n",
		cfg.Sync.WindowDays, cfg.Sync.ChunkDays, cfg.Controller.BaseURL)

	src := controller.NewClient(&cfg.Controller)
	scanner := syncer.NewScanner(src, cfg.Sync.WindowDays, cfg.Sync.ChunkDays)

	cov, err := scanner.Scan(context.Background(), nil)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	fmt.Printf("\n--- Coverage Report ---\n")
	fmt.Printf("Records: %d total, %d useful\n", cov.TotalRecords, cov.UsefulRecords)
	if cov.UsefulRecords > 0 {
		fmt.Printf("Oldest useful record: %s\n", cov.OldestDate)
		fmt.Printf("Newest useful record: %s\n", cov.NewestDate)
	}
	fmt.Printf("Days with data: %d of %d (%.2f%%)\n", cov.DaysWithData, cov.DaysScanned, cov.Percent)
	fmt.Printf("-----------------------\n")
}

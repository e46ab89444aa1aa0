package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IchiThe2nd/aidivalogger/internal/alert"
	"github.com/IchiThe2nd/aidivalogger/internal/controller"
	"github.com/IchiThe2nd/aidivalogger/internal/influx"
	"github.com/IchiThe2nd/aidivalogger/internal/notification"
	"github.com/IchiThe2nd/aidivalogger/internal/poller"
	"github.com/IchiThe2nd/aidivalogger/internal/schedule"
	"github.com/IchiThe2nd/aidivalogger/internal/status"
	"github.com/IchiThe2nd/aidivalogger/internal/stream"
	syncer "github.com/IchiThe2nd/aidivalogger/internal/sync"
	"github.com/IchiThe2nd/aidivalogger/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	host := cfg.Controller.Hostname

	fmt.Println("Starting AiDiva Logger...")

	// Connect to the time-series store
	store, err := influx.Connect(&cfg.Influx)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer store.Close()
	fmt.Printf("Connected to store %s (db=%s)\n", cfg.Influx.URL, cfg.Influx.Database)

	// Controller client
	src := controller.NewClient(&cfg.Controller)
	fmt.Printf("Controller client ready (%s, offset %+d min)\n",
		cfg.Controller.BaseURL, cfg.Controller.UTCOffsetMin)

	// Optional Redis for sync status and alarm state
	var statusStore *status.Store
	var alarmStates alert.StateStore = alert.NewMemoryStateStore()
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		statusStore = status.NewStore(redisClient)
		alarmStates = alert.NewRedisStateStore(redisClient)
		fmt.Println("Redis state store enabled")

		if last, err := statusStore.LastSync(context.Background(), host); err == nil && last != nil {
			fmt.Printf("Previous sync [%s]: %s (%.2f%% coverage, %d points)\n",
				last.RunID, last.State, last.CoveragePercent, last.PointsWritten)
		}
	}

	// Optional Kafka snapshot stream
	var producer *stream.Producer
	if cfg.Kafka.Enabled {
		if err := stream.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicStatus, cfg.Kafka.NumPartitions, 1); err != nil {
			fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
		}
		producer = stream.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStatus)
		defer producer.Close()
		fmt.Printf("Kafka snapshot stream enabled (topic=%s)\n", cfg.Kafka.TopicStatus)
	}

	notifier := notification.NewEmailNotifier(&cfg.SMTP)

	rules, err := alert.ParseRules(cfg.Alert.Rules)
	if err != nil {
		log.Fatalf("Failed to parse alert rules: %v", err)
	}
	if len(rules) > 0 {
		fmt.Printf("Loaded %d alert rule(s)\n", len(rules))
	}

	ctx := context.Background()

	// Heal the recent gap before live polling begins; the store's dedup
	// makes the rewrite safe even after a clean shutdown.
	backfill := syncer.NewBackfill(src, store, host, cfg.Sync)
	if err := backfill.Run(ctx); err != nil {
		log.Printf("Backfill incomplete (continuing startup): %v", err)
	}

	// Catch-up reconciliation runs detached, concurrent with live polling.
	// Both writers are idempotent at the point level.
	reconciler := syncer.NewReconciler(src, store, host, cfg.Sync)
	if statusStore != nil {
		reconciler.Status = statusStore
	}
	reconciler.Notifier = notifier
	reconciler.MaxLag = cfg.Alert.MaxLag
	go reconciler.Run(ctx)

	// Live polling loop
	p := poller.New(src, store, host)
	if producer != nil {
		p.Publisher = producer
	}
	if len(rules) > 0 {
		p.Alerts = alert.NewEvaluator(rules, alarmStates, notifier, host)
	}

	sched := schedule.NewScheduler()
	sched.Start()
	defer sched.Stop()
	schedulePolling(sched, p, cfg.Poll.Interval)

	fmt.Println("\n✓ AiDiva Logger is running")
	fmt.Printf("✓ Polling %s every %s\n", cfg.Controller.BaseURL, cfg.Poll.Interval)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}

// schedulePolling registers the self-rescheduling poll tick. The first tick
// fires immediately so a restart doesn't leave a poll-interval-sized hole.
func schedulePolling(s *schedule.Scheduler, p *poller.Poller, interval time.Duration) {
	taskID := "live-poll"

	var scheduleNext func()
	tick := func() {
		p.Tick(context.Background())
		scheduleNext()
	}
	scheduleNext = func() {
		if err := s.Schedule(taskID, time.Now().Add(interval), tick); err != nil {
			log.Printf("Failed to schedule next poll: %v", err)
		}
	}

	if err := s.Schedule(taskID, time.Now(), tick); err != nil {
		log.Printf("Failed to schedule first poll: %v", err)
	}
}

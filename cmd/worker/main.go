package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"checkin/internal/config"
	"checkin/internal/ledger"
	"checkin/internal/notifyclient"
	"checkin/internal/queue"
	"checkin/internal/store"
)

// Worker consumes accepted check-ins from the queue and delivers
// "attendance marked" notifications through the notification service.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "checkin:marks")
	}

	notifier := notifyclient.New(cfg.NotifyURL, cfg.NotifySkip)
	if !cfg.NotifySkip {
		if err := notifier.Health(ctx); err != nil {
			log.Printf("WARNING: notification service not available: %v", err)
			log.Println("Worker will retry delivery when messages arrive")
		} else {
			log.Println("Notification service connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "attendance_marked" {
			continue
		}

		var rec ledger.Record
		if err := json.Unmarshal(msg.Body, &rec); err != nil {
			log.Printf("drop undecodable message: %v", err)
			continue
		}

		n := notifyclient.Notification{
			Recipient: rec.StudentID,
			EventID:   rec.EventID,
			Kind:      "attendance_marked",
			Message:   fmt.Sprintf("Your attendance was recorded at %s", rec.MarkedAt.Format("15:04")),
		}
		if err := notifier.Send(ctx, n); err != nil {
			log.Printf("notify %s for event %s failed: %v", rec.StudentID, rec.EventID, err)
			continue
		}
		log.Printf("notified %s for event %s", rec.StudentID, rec.EventID)
	}

	log.Println("worker stopped")
}

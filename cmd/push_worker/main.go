package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/lowzingo/members-api/config"
	"github.com/lowzingo/members-api/internal/application"
	pginfra "github.com/lowzingo/members-api/internal/infrastructure/postgres"
	"github.com/lowzingo/members-api/pkg/webpush"
)

// Consumes broadcast jobs and delivers them to the push service. Endpoints
// the push service reports gone (404/410) are pruned from the store.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.RabbitMQURL == "" || cfg.RabbitMQPushQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}

	sender := webpush.NewSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	if !sender.Configured() {
		log.Fatal("VAPID keys not configured")
	}

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	subs := pginfra.NewPushSubscriptionRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(32, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	if _, err := ch.QueueDeclare(cfg.RabbitMQPushQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQPushQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			var job application.PushJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				log.Printf("bad message: %v", err)
				_ = msg.Nack(false, false)
				continue
			}

			c, cancel := context.WithTimeout(ctx, 10*time.Second)
			status, err := sender.Send(c, job.Subscription, job.Notification)
			cancel()
			if err != nil {
				log.Printf("push send failed: %v", err)
				_ = msg.Nack(false, true)
				continue
			}
			if webpush.SubscriptionGone(status) {
				c, cancel := context.WithTimeout(ctx, 5*time.Second)
				if derr := subs.DeleteByEndpoint(c, job.Subscription.Endpoint); derr != nil {
					log.Printf("prune subscription failed: %v", derr)
				}
				cancel()
			}
			_ = msg.Ack(false)
		}
		close(done)
	}()

	log.Printf("push worker listening on queue=%s", cfg.RabbitMQPushQueue)
	<-stop
	log.Printf("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

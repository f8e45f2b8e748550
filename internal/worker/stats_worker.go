package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/Sachintha-Prasad/retail-management-system/internal/model"
	"github.com/Sachintha-Prasad/retail-management-system/internal/repository"
)

const (
	orderQueueName = "orders"
	dlxExchange    = "orders.dlx"
	dlqQueueName   = "orders.dlq"
	idempotencyTTL = 24 * time.Hour

	// Dashboard counters, read by the admin stats endpoint.
	StatsOrderCountKey = "stats:orders:count"
	StatsRevenueKey    = "stats:orders:revenue"
)

// StatsWorker consumes order-created messages and keeps the dashboard
// counters in Redis. It never mutates products or carts; failed messages
// dead-letter after a single redelivery attempt.
type StatsWorker struct {
	channel     *amqp.Channel
	orderRepo   repository.OrderRepository
	redisClient *redis.Client
	log         *slog.Logger
	done        chan struct{}
}

func NewStatsWorker(ch *amqp.Channel, orderRepo repository.OrderRepository, redisClient *redis.Client, log *slog.Logger) *StatsWorker {
	return &StatsWorker{
		channel:     ch,
		orderRepo:   orderRepo,
		redisClient: redisClient,
		log:         log,
		done:        make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, orderQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(orderQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": orderQueueName,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *StatsWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(orderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("stats worker started")
	return nil
}

func (w *StatsWorker) Stop() { close(w.done) }

func (w *StatsWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var orderMsg model.OrderMessage
	if err := json.Unmarshal(msg.Body, &orderMsg); err != nil {
		w.log.Error("unmarshal order message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", orderMsg.OrderID, "customer_id", orderMsg.CustomerID)

	// Counting an order twice would skew revenue, so each order id is
	// recorded exactly once.
	idempotencyKey := "stats_recorded:" + orderMsg.OrderID.String()
	exists, err := w.redisClient.Exists(ctx, idempotencyKey).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("order already recorded, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.recordOrder(ctx, orderMsg); err != nil {
		log.Error("record order failed", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	if err := w.redisClient.Set(ctx, idempotencyKey, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("order recorded")
}

func (w *StatsWorker) recordOrder(ctx context.Context, msg model.OrderMessage) error {
	// The message total is advisory; the stored order is authoritative.
	order, err := w.orderRepo.GetByID(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", msg.OrderID)
	}

	pipe := w.redisClient.TxPipeline()
	pipe.Incr(ctx, StatsOrderCountKey)
	pipe.IncrByFloat(ctx, StatsRevenueKey, order.Total.InexactFloat64())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update stats counters: %w", err)
	}
	return nil
}

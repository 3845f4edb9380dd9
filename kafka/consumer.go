package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/milosamec/engravape/middleware"
	"github.com/milosamec/engravape/models"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	EventPaymentSuccess = "payment_success"
	EventPaymentFailed  = "payment_failed"
)

func InitConsumer(brokers []string, logger *zap.Logger) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Retry.Backoff = 1 * time.Second

	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized", zap.Strings("brokers", brokers))
	return consumer, nil
}

type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, orderID string, requester models.Requester, result models.PaymentResult) (*models.Order, error)
}

// PaymentConsumer applies payment_success events from the payment topic
// through the same confirmation path as the HTTP endpoint.
type PaymentConsumer struct {
	consumer   sarama.Consumer
	topic      string
	orders     PaymentConfirmer
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewPaymentConsumer(consumer sarama.Consumer, topic string, orders PaymentConfirmer, maxRetries int, logger *zap.Logger) *PaymentConsumer {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &PaymentConsumer{
		consumer:   consumer,
		topic:      topic,
		orders:     orders,
		maxRetries: maxRetries,
		backoff:    time.Second,
		logger:     logger,
	}
}

// Run consumes every partition of the topic until ctx is cancelled.
func (pc *PaymentConsumer) Run(ctx context.Context) error {
	partitions, err := pc.consumer.Partitions(pc.topic)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	var wg sync.WaitGroup
	for _, partition := range partitions {
		partitionConsumer, err := pc.consumer.ConsumePartition(pc.topic, partition, sarama.OffsetNewest)
		if err != nil {
			return fmt.Errorf("failed to consume partition %d: %w", partition, err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer partitionConsumer.Close()
			pc.consumePartition(ctx, partitionConsumer)
		}()
	}

	pc.logger.Info("Kafka consumer started", zap.String("topic", pc.topic), zap.Int("partitions", len(partitions)))
	wg.Wait()
	return nil
}

func (pc *PaymentConsumer) consumePartition(ctx context.Context, partitionConsumer sarama.PartitionConsumer) {
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-partitionConsumer.Messages():
			if !ok {
				return
			}
			if err := pc.handleMessageWithRetry(ctx, message); err != nil {
				pc.logger.Error("Failed to handle message after retries",
					zap.Int32("partition", message.Partition),
					zap.Int64("offset", message.Offset),
					zap.Error(err),
				)
			}
		case err, ok := <-partitionConsumer.Errors():
			if !ok {
				return
			}
			pc.logger.Error("Kafka consumer error", zap.Error(err))
		}
	}
}

func (pc *PaymentConsumer) handleMessageWithRetry(ctx context.Context, message *sarama.ConsumerMessage) error {
	var lastErr error
	for attempt := 1; attempt <= pc.maxRetries; attempt++ {
		err := pc.handleMessage(ctx, message)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		if attempt < pc.maxRetries {
			backoff := time.Duration(attempt) * pc.backoff
			pc.logger.Warn("Retrying message handling",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", pc.maxRetries, lastErr)
}

func (pc *PaymentConsumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	ctx = otel.GetTextMapPropagator().Extract(ctx, consumerHeaderCarrier(message.Headers))
	ctx, span := otel.Tracer("engravape").Start(ctx, "ProcessPaymentEvent")
	defer span.End()

	var event models.PaymentEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to unmarshal event: %v", models.ErrValidation, err)
	}

	span.SetAttributes(
		attribute.String("event.type", event.EventType),
		attribute.String("order.id", event.OrderID),
	)

	traceID := middleware.GetTraceID(ctx)
	switch event.EventType {
	case EventPaymentSuccess:
		_, err := pc.orders.ConfirmPayment(ctx, event.OrderID, models.SystemRequester, models.PaymentResult{
			ID:           event.TransactionID,
			Status:       event.Status,
			UpdateTime:   event.UpdateTime,
			EmailAddress: event.PayerEmail,
		})
		if err != nil {
			span.RecordError(err)
			return err
		}
		pc.logger.Info("Payment event applied",
			zap.String("trace_id", traceID),
			zap.String("order_id", event.OrderID),
			zap.String("transaction_id", event.TransactionID),
		)
	case EventPaymentFailed:
		pc.logger.Info("Payment failed for order",
			zap.String("trace_id", traceID),
			zap.String("order_id", event.OrderID),
		)
	default:
		pc.logger.Debug("Ignoring event", zap.String("event_type", event.EventType))
	}
	return nil
}

// retryable reports whether a handler failure may succeed on a later attempt.
func retryable(err error) bool {
	return errors.Is(err, models.ErrPersistence) || errors.Is(err, models.ErrGatewayUnavailable)
}

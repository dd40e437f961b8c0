/*
consumer.go - Kafka consumer loop

PURPOSE:
  Reads validation requests from the request topic and publishes responses
  to per-client response topics (the scheduler and the dashboard each own
  one). Messages are keyed by request id so responses for one request land
  on one partition in order.

SHUTDOWN:
  Run exits when its context is cancelled; the caller closes the reader
  and writers through Close.
*/
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/brewbot/validation-engine/validation"
)

// Config holds the broker wiring for the consumer.
type Config struct {
	Brokers      []string
	RequestTopic string
	GroupID      string
	// ResponseTopics routes responses by the requesting client's type.
	ResponseTopics map[validation.ClientType]string
}

// DefaultResponseTopics mirrors the deployment's queue layout: one
// response topic per client service.
func DefaultResponseTopics() map[validation.ClientType]string {
	return map[validation.ClientType]string{
		validation.ClientScheduler: "scheduler-responses",
		validation.ClientDashboard: "dashboard-responses",
	}
}

// Consumer owns the reader, the per-client writers, and the dispatch loop.
type Consumer struct {
	reader     *kafka.Reader
	writers    map[validation.ClientType]*kafka.Writer
	dispatcher *Dispatcher
	log        *zap.Logger
}

// NewConsumer wires a consumer from config. The caller owns the logger.
func NewConsumer(cfg Config, dispatcher *Dispatcher, log *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.RequestTopic,
		GroupID: cfg.GroupID,
	})

	writers := make(map[validation.ClientType]*kafka.Writer, len(cfg.ResponseTopics))
	for client, topic := range cfg.ResponseTopics {
		writers[client] = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		}
	}

	return &Consumer{
		reader:     reader,
		writers:    writers,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("validation consumer started",
		zap.String("topic", c.reader.Config().Topic),
		zap.String("group", c.reader.Config().GroupID),
	)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.log.Info("context done, exiting read loop")
				return nil
			}
			c.log.Error("error reading from queue", zap.Error(err))
			continue
		}

		resp, payload, err := c.dispatcher.Dispatch(msg.Value)
		if err != nil {
			// Undecodable or unserializable; dropping is the only safe move.
			c.log.Error("dropping message", zap.Error(err),
				zap.Int64("offset", msg.Offset))
			continue
		}

		c.log.Info("processed request",
			zap.String("request_id", resp.RequestID),
			zap.String("client_type", string(resp.ClientType)),
		)

		if err := c.publish(ctx, resp, payload); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("failed to publish response",
				zap.Error(err),
				zap.String("request_id", resp.RequestID),
			)
		}
	}
}

func (c *Consumer) publish(ctx context.Context, resp validation.Response, payload []byte) error {
	writer, ok := c.writers[resp.ClientType]
	if !ok {
		return fmt.Errorf("no response topic for client_type %q", resp.ClientType)
	}
	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(resp.RequestID),
		Value: payload,
	})
}

// Close releases the reader and writers.
func (c *Consumer) Close() error {
	var errs []error
	if err := c.reader.Close(); err != nil {
		errs = append(errs, err)
	}
	for _, w := range c.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

// MessageHandler processes one fetched message. Returning ErrSkip commits the
// message without further handling; any other error leaves it uncommitted.
type MessageHandler func(ctx context.Context, msg *IncomingMessage) error

// ErrSkip marks a message that can never be handled (bad payload).
var ErrSkip = errors.New("kafka: skip message")

// Reader is the part of kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
}

type Consumer struct {
	reader  Reader
	topic   string
	logger  ectologger.Logger
	handler MessageHandler
	backoff time.Duration

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.RWMutex
	running bool
	lastErr error
}

func NewConsumer(cfg ConsumerConfig, logger ectologger.Logger, handler MessageHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0, // synchronous commits
	})
	return NewConsumerWithReader(reader, cfg.Topic, logger, handler)
}

// NewConsumerWithReader builds a consumer over an existing reader.
func NewConsumerWithReader(reader Reader, topic string, logger ectologger.Logger, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  reader,
		topic:   topic,
		logger:  logger,
		handler: handler,
		backoff: time.Second,
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel

	c.setRunning(true, nil)
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.WithContext(ctx).WithField("topic", c.topic).Info("Kafka consumer started")
	return nil
}

// Stop cancels the loop, waits for the in-flight message and closes the reader.
func (c *Consumer) Stop(_ context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.setRunning(false, nil)
	return c.reader.Close()
}

// Healthy reports an error when the loop is not running or the last fetch failed.
func (c *Consumer) Healthy(_ context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.running {
		return errors.New("consumer is not running")
	}
	return c.lastErr
}

func (c *Consumer) setRunning(running bool, lastErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = running
	c.lastErr = lastErr
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.logger.WithContext(ctx).Info("Consumer loop stopping")
				return
			}
			c.logger.WithContext(ctx).WithError(err).Error("Failed to fetch message")
			c.setRunning(true, err)
			if !c.sleep(ctx) {
				return
			}
			continue
		}
		c.setRunning(true, nil)

		for !c.processMessage(ctx, msg) {
			// uncommitted messages are retried in place to keep partition order
			if !c.sleep(ctx) {
				return
			}
		}
	}
}

func (c *Consumer) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff):
		return true
	}
}

// processMessage reports whether the message was committed.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) bool {
	incoming := newIncomingMessage(msg)
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(incoming.Headers))

	ctx, span := tracing.StartSpan(ctx, "kafka.Consumer.processMessage")
	defer span.End()

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	if err := c.handler(ctx, incoming); err != nil {
		if !errors.Is(err, ErrSkip) {
			tracing.RecordError(ctx, err)
			log.WithError(err).Error("Failed to process message (not committing)")
			return false
		}
		log.WithError(err).Warn("Skipping message")
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.WithError(err).Error("Failed to commit message")
		return false
	}
	return true
}

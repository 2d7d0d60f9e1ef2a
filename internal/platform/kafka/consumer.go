package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"rolesync/pkg/platform/retry"
)

// Dead-letter record headers.
const (
	HeaderError     = "x-rolesync-error"
	HeaderTopic     = "x-rolesync-topic"
	HeaderPartition = "x-rolesync-partition"
	HeaderOffset    = "x-rolesync-offset"
)

// Client is the subset of *kgo.Client the consumer drives.
type Client interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Consumer polls records, hands them to a Handler, and commits offsets once
// every record of a batch is handled or dead-lettered.
type Consumer struct {
	client          Client
	handler         Handler
	deadLetterTopic string
	redelivery      retry.Policy
	logger          *slog.Logger
}

type ConsumerOption func(*Consumer)

func WithLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// WithRedelivery bounds how many times a failing record is handed to the
// handler before it is dead-lettered.
func WithRedelivery(p retry.Policy) ConsumerOption {
	return func(c *Consumer) {
		c.redelivery = p
	}
}

// WithDeadLetterTopic sets where undeliverable records go. Without one they
// are logged and committed.
func WithDeadLetterTopic(topic string) ConsumerOption {
	return func(c *Consumer) {
		c.deadLetterTopic = topic
	}
}

// NewConsumer creates a Consumer.
func NewConsumer(client Client, handler Handler, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		client:     client,
		handler:    handler,
		redelivery: retry.DefaultPolicy(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes until ctx is done or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		if err := c.processBatch(ctx, fetches); err != nil {
			return err
		}
	}
}

// processBatch handles every record and commits them. A record that can be
// neither handled nor dead-lettered stops the batch without committing.
func (c *Consumer) processBatch(ctx context.Context, fetches kgo.Fetches) error {
	var (
		done []*kgo.Record
		stop error
	)
	fetches.EachRecord(func(r *kgo.Record) {
		if stop != nil {
			return
		}
		if err := c.process(ctx, r); err != nil {
			stop = err
			return
		}
		done = append(done, r)
	})

	if len(done) > 0 {
		if err := c.client.CommitRecords(ctx, done...); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.ErrorContext(ctx, "offset commit failed", "records", len(done), "error", err)
		}
	}
	if stop != nil && ctx.Err() != nil {
		return nil
	}
	return stop
}

func (c *Consumer) process(ctx context.Context, r *kgo.Record) error {
	msg := toMessage(r)
	err := c.redelivery.Do(ctx, func(ctx context.Context) error {
		return c.handler.Handle(ctx, msg)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}

	c.logger.ErrorContext(ctx, "message handling failed",
		"topic", r.Topic,
		"partition", r.Partition,
		"offset", r.Offset,
		"permanent", retry.IsPermanent(err),
		"error", err,
	)
	return c.deadLetter(ctx, r, err)
}

func (c *Consumer) deadLetter(ctx context.Context, r *kgo.Record, cause error) error {
	if c.deadLetterTopic == "" {
		return nil
	}
	dl := &kgo.Record{
		Topic: c.deadLetterTopic,
		Key:   r.Key,
		Value: r.Value,
		Headers: append(append([]kgo.RecordHeader(nil), r.Headers...),
			kgo.RecordHeader{Key: HeaderError, Value: []byte(cause.Error())},
			kgo.RecordHeader{Key: HeaderTopic, Value: []byte(r.Topic)},
			kgo.RecordHeader{Key: HeaderPartition, Value: []byte(strconv.FormatInt(int64(r.Partition), 10))},
			kgo.RecordHeader{Key: HeaderOffset, Value: []byte(strconv.FormatInt(r.Offset, 10))},
		),
	}
	if err := c.client.ProduceSync(ctx, dl).FirstErr(); err != nil {
		return fmt.Errorf("dead-letter %s/%d@%d: %w", r.Topic, r.Partition, r.Offset, err)
	}
	c.logger.WarnContext(ctx, "message dead-lettered",
		"topic", r.Topic,
		"offset", r.Offset,
		"dead_letter_topic", c.deadLetterTopic,
	)
	return nil
}

//go:build integration

package kafka_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"rolesync/internal/platform/config"
	"rolesync/internal/platform/kafka"
	"rolesync/pkg/platform/retry"
	"rolesync/pkg/platform/sentinel"
	"rolesync/pkg/testutil/containers"
)

type KafkaSuite struct {
	suite.Suite
	broker string
}

func TestKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSuite))
}

func (s *KafkaSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
}

func (s *KafkaSuite) TestConsumeAndDeadLetter() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := config.KafkaConfig{Brokers: []string{s.broker}, GroupID: "rolesync-it"}
	const (
		topic = "it.user-created"
		dlq   = "it.dead-letter"
	)

	client, err := kafka.NewClient(cfg, topic)
	s.Require().NoError(err)
	defer client.Close()
	s.Require().NoError(kafka.EnsureTopics(ctx, client, 1, 1, topic, dlq))
	s.Require().NoError(kafka.EnsureTopics(ctx, client, 1, 1, topic), "existing topics are tolerated")

	var (
		mu   sync.Mutex
		seen []string
	)
	handler := kafka.HandlerFunc(func(_ context.Context, msg *kafka.Message) error {
		mu.Lock()
		seen = append(seen, string(msg.Value))
		mu.Unlock()
		if string(msg.Value) == "poison" {
			return sentinel.ErrInvalidInput
		}
		return nil
	})
	consumer := kafka.NewConsumer(client, handler,
		kafka.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		kafka.WithRedelivery(retry.Once()),
		kafka.WithDeadLetterTopic(dlq),
	)

	producer, err := kgo.NewClient(kgo.SeedBrokers(s.broker))
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(producer.ProduceSync(ctx,
		&kgo.Record{Topic: topic, Value: []byte(`{"uid":"abc123"}`)},
		&kgo.Record{Topic: topic, Value: []byte("poison")},
	).FirstErr())

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- consumer.Run(runCtx) }()

	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 30*time.Second, 100*time.Millisecond)

	reader, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(dlq),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer reader.Close()

	var dead []*kgo.Record
	s.Eventually(func() bool {
		pollCtx, cancelPoll := context.WithTimeout(ctx, time.Second)
		defer cancelPoll()
		reader.PollFetches(pollCtx).EachRecord(func(r *kgo.Record) { dead = append(dead, r) })
		return len(dead) == 1
	}, 30*time.Second, 100*time.Millisecond)
	s.Equal("poison", string(dead[0].Value))

	stop()
	s.NoError(<-done)
}

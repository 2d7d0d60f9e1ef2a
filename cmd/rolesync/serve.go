package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rolesync/internal/documents/changefeed"
	"rolesync/internal/events"
	"rolesync/internal/events/consumer"
	"rolesync/internal/platform/config"
	"rolesync/internal/platform/httpserver"
	"rolesync/internal/platform/kafka"
	httptransport "rolesync/internal/transport/http"
	"rolesync/pkg/platform/retry"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume user and profile events and keep role claims in sync",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.memDocs != nil {
		a.memDocs.Watch(a.events.DocumentSink(ctx))
	}

	if a.db != nil && a.cfg.ChangeFeed.Enabled {
		feed := changefeed.New(a.db, a.cfg.Store.DatabaseURL, a.events,
			changefeed.WithLogger(a.logger),
			changefeed.WithBatchSize(a.cfg.ChangeFeed.BatchSize),
			changefeed.WithMaxAttempts(a.cfg.ChangeFeed.MaxAttempts),
			changefeed.WithSweepInterval(a.cfg.ChangeFeed.SweepInterval),
		)
		g.Go(func() error { return feed.Run(ctx) })
	}

	if a.cfg.Kafka.Enabled() {
		run, err := a.kafkaConsumer(ctx)
		if err != nil {
			return err
		}
		g.Go(func() error { return run(ctx) })
	}

	router := httptransport.NewRouter(
		httptransport.NewEventsHandler(a.events, a.logger),
		a.checks,
		a.registry,
		a.logger,
	)
	srv := httpserver.New(a.cfg.Server, router)

	g.Go(func() error {
		a.logger.Info("starting rolesync", "addr", a.cfg.Server.Addr, "store", a.cfg.Store.Backend, "claims", a.cfg.Claims.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *app) kafkaConsumer(ctx context.Context) (func(context.Context) error, error) {
	kc := a.cfg.Kafka
	router := consumer.NewRouter(a.events, a.logger)
	if err := router.Register(kc.UserCreatedTopic, events.KindUserCreated); err != nil {
		return nil, err
	}
	if err := router.Register(kc.ProfileTopic, events.KindDocumentUpdated); err != nil {
		return nil, err
	}

	client, err := kafka.NewClient(kc, router.Topics()...)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { client.Close(); return nil })
	a.checks["kafka"] = client.Ping

	if kc.EnsureTopics {
		topics := router.Topics()
		if kc.DeadLetterTopic != "" {
			topics = append(topics, kc.DeadLetterTopic)
		}
		if err := kafka.EnsureTopics(ctx, client, kc.TopicPartitions, kc.TopicReplication, topics...); err != nil {
			return nil, err
		}
	}

	c := kafka.NewConsumer(client, router,
		kafka.WithLogger(a.logger),
		kafka.WithDeadLetterTopic(kc.DeadLetterTopic),
		kafka.WithRedelivery(redeliveryPolicy(a.cfg)),
	)
	return c.Run, nil
}

func redeliveryPolicy(cfg config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts:     cfg.Kafka.MaxDeliveryRounds,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}
}

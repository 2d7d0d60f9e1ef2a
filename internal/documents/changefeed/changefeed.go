// Package changefeed turns rows of the document_changes outbox into
// document.updated events. Rows are written by a trigger on every document
// update; the listener is woken by NOTIFY and also sweeps on an interval so
// failed rows are retried.
package changefeed

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"rolesync/internal/documents"
	"rolesync/internal/events"
	"rolesync/pkg/platform/retry"
)

// Channel is the NOTIFY channel the outbox trigger signals.
const Channel = "document_changes"

const (
	defaultBatchSize     = 100
	defaultMaxAttempts   = 10
	defaultSweepInterval = 30 * time.Second
	maxErrorLength       = 1024
)

// Dispatcher is satisfied by *events.Registry.
type Dispatcher interface {
	Dispatch(ctx context.Context, env events.Envelope) error
}

// Listener drains the outbox into a Dispatcher.
type Listener struct {
	db            *sql.DB
	dsn           string
	dispatcher    Dispatcher
	batchSize     int
	maxAttempts   int
	sweepInterval time.Duration
	logger        *slog.Logger
}

type Option func(*Listener)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		l.logger = logger
	}
}

func WithBatchSize(n int) Option {
	return func(l *Listener) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithMaxAttempts sets how many failed dispatches park a row as dead.
func WithMaxAttempts(n int) Option {
	return func(l *Listener) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

func WithSweepInterval(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.sweepInterval = d
		}
	}
}

// New creates a Listener. dsn is used for the dedicated LISTEN connection.
func New(db *sql.DB, dsn string, dispatcher Dispatcher, opts ...Option) *Listener {
	l := &Listener{
		db:            db,
		dsn:           dsn,
		dispatcher:    dispatcher,
		batchSize:     defaultBatchSize,
		maxAttempts:   defaultMaxAttempts,
		sweepInterval: defaultSweepInterval,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drains the outbox once, then again on every notification and sweep
// tick, until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("changefeed connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("changefeed listen: %w", err)
	}

	wake := make(chan struct{}, 1)
	waitErr := make(chan error, 1)
	waitCtx, stopWait := context.WithCancel(ctx)
	go func() {
		for {
			if _, err := conn.WaitForNotification(waitCtx); err != nil {
				waitErr <- err
				return
			}
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}()
	defer func() {
		stopWait()
		<-waitErr
	}()

	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	l.drainAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-waitErr:
			// the deferred cleanup waits on it too
			waitErr <- err
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("changefeed wait: %w", err)
		case <-wake:
			l.drainAndLog(ctx)
		case <-ticker.C:
			l.drainAndLog(ctx)
		}
	}
}

func (l *Listener) drainAndLog(ctx context.Context) {
	n, err := l.Drain(ctx)
	if err != nil {
		if ctx.Err() == nil {
			l.logger.ErrorContext(ctx, "changefeed drain failed", "error", err)
		}
		return
	}
	if n > 0 {
		l.logger.DebugContext(ctx, "changefeed drained", "rows", n)
	}
}

// Drain dispatches every pending row once and returns how many were read.
// Rows of one document are dispatched in id order: a row is only read once
// every earlier row of its document is processed or dead. A failed row stays
// pending, blocking its document until the next drain, or is marked dead once
// it runs out of attempts.
func (l *Listener) Drain(ctx context.Context) (int, error) {
	var (
		failed = []int64{}
		total  int
	)
	for {
		n, batchFailed, err := l.drainBatch(ctx, failed)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			return total, nil
		}
		failed = append(failed, batchFailed...)
	}
}

type changeRow struct {
	id         int64
	eventID    string
	collection string
	docID      string
	before     []byte
	after      []byte
}

// drainBatch reads the oldest pending row of up to batchSize documents,
// skipping rows that already failed during this drain.
func (l *Listener) drainBatch(ctx context.Context, skip []int64) (int, []int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("begin drain: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT c.id, c.event_id, c.collection, c.doc_id, c.fields_before, c.fields_after
		FROM document_changes c
		WHERE c.processed_at IS NULL AND c.dead_at IS NULL
			AND NOT (c.id = ANY($1::bigint[]))
			AND NOT EXISTS (
				SELECT 1 FROM document_changes e
				WHERE e.collection = c.collection AND e.doc_id = c.doc_id
					AND e.id < c.id
					AND e.processed_at IS NULL AND e.dead_at IS NULL
			)
		ORDER BY c.id
		LIMIT $2
		FOR UPDATE OF c SKIP LOCKED
	`, pq.Array(skip), l.batchSize)
	if err != nil {
		return 0, nil, fmt.Errorf("select pending changes: %w", err)
	}
	var batch []changeRow
	for rows.Next() {
		var r changeRow
		if err := rows.Scan(&r.id, &r.eventID, &r.collection, &r.docID, &r.before, &r.after); err != nil {
			rows.Close()
			return 0, nil, fmt.Errorf("scan change: %w", err)
		}
		batch = append(batch, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, nil, fmt.Errorf("read changes: %w", err)
	}
	rows.Close()

	if len(batch) == 0 {
		return 0, nil, nil
	}

	var processed, failed []int64
	for _, r := range batch {
		derr := l.dispatch(ctx, r)
		if derr == nil {
			processed = append(processed, r.id)
			continue
		}
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		if err := l.markFailed(ctx, tx, r, derr); err != nil {
			return 0, nil, err
		}
		failed = append(failed, r.id)
	}

	if len(processed) > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE document_changes SET processed_at = now() WHERE id = ANY($1)`,
			pq.Array(processed),
		); err != nil {
			return 0, nil, fmt.Errorf("mark processed: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit drain: %w", err)
	}
	return len(batch), failed, nil
}

func (l *Listener) dispatch(ctx context.Context, r changeRow) error {
	env, err := envelopeFor(r)
	if err != nil {
		return err
	}
	return l.dispatcher.Dispatch(ctx, env)
}

func (l *Listener) markFailed(ctx context.Context, tx *sql.Tx, r changeRow, cause error) error {
	msg := cause.Error()
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}
	permanent := retry.IsPermanent(cause)

	var dead bool
	err := tx.QueryRowContext(ctx, `
		UPDATE document_changes
		SET attempts = attempts + 1,
			last_error = $2,
			dead_at = CASE WHEN $3 OR attempts + 1 >= $4 THEN now() END
		WHERE id = $1
		RETURNING dead_at IS NOT NULL
	`, r.id, msg, permanent, l.maxAttempts).Scan(&dead)
	if err != nil {
		return fmt.Errorf("mark change %d failed: %w", r.id, err)
	}

	level := slog.LevelWarn
	if dead {
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, "document change dispatch failed",
		"event_id", r.eventID,
		"document", r.collection+"/"+r.docID,
		"dead", dead,
		"error", cause,
	)
	return nil
}

func envelopeFor(r changeRow) (events.Envelope, error) {
	var before, after documents.Fields
	if err := json.Unmarshal(r.before, &before); err != nil {
		return events.Envelope{}, fmt.Errorf("%w: change %d before: %v", events.ErrMalformedEvent, r.id, err)
	}
	if err := json.Unmarshal(r.after, &after); err != nil {
		return events.Envelope{}, fmt.Errorf("%w: change %d after: %v", events.ErrMalformedEvent, r.id, err)
	}
	env, err := events.NewDocumentUpdated(documents.Change{
		Ref:    documents.Ref{Collection: r.collection, ID: r.docID},
		Before: before,
		After:  after,
	})
	if err != nil {
		return events.Envelope{}, errors.Join(events.ErrMalformedEvent, err)
	}
	env.ID = r.eventID
	return env, nil
}

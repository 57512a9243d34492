// Package sweeper periodically evicts old terminal messages from the bus store
// and hands them to an optional archive.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/agentbus-ledger/internal/platform/metrics"
)

// Archiver keeps swept messages somewhere durable
type Archiver interface {
	Archive(ctx context.Context, msgs []*message.Message) error
}

// Option customizes a Sweeper
type Option func(*Sweeper)

// WithArchiver archives every swept batch
func WithArchiver(a Archiver) Option {
	return func(s *Sweeper) { s.archiver = a }
}

type Sweeper struct {
	store    message.Store
	archiver Archiver
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
}

func New(store message.Store, interval, maxAge time.Duration, logger *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start sweeps every interval until ctx is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting message sweeper",
		"interval", s.interval.String(),
		"max_age", s.maxAge.String(),
		"archive", s.archiver != nil,
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Message sweeper stopping due to context cancellation")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("Error during message sweep", "error", err)
			}
		}
	}
}

// SweepOnce removes expired terminal messages and returns how many were removed.
// An archive failure is logged and counted; the messages stay removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	removed, err := s.store.Sweep(ctx, s.maxAge)
	if err != nil {
		return 0, err
	}
	if len(removed) == 0 {
		return 0, nil
	}
	metrics.MessagesSwept.Add(float64(len(removed)))

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, removed); err != nil {
			metrics.ArchiveFailures.Inc()
			s.logger.Error("Failed to archive swept messages", "count", len(removed), "error", err)
		}
	}
	return len(removed), nil
}

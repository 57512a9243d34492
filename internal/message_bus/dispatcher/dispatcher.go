// Package dispatcher delivers pending bus messages to the handler registered for
// their recipient. Each agent's messages run one at a time in insertion order;
// different agents run concurrently on a bounded worker pool.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/agentbus-ledger/internal/platform/metrics"
	"github.com/panjf2000/ants/v2"
)

// dlqSource tags dead letters published by the dispatcher
const dlqSource = "dispatcher"

// Handler processes one claimed message. A handler that returns nil must have
// responded to the message itself.
type Handler interface {
	Handle(ctx context.Context, msg *message.Message) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, msg *message.Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *message.Message) error {
	return f(ctx, msg)
}

// DeadLetterPublisher receives messages that ended FAILED
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, source, key string, value []byte, reason string) error
}

type Config struct {
	Interval time.Duration // fallback tick
	PoolSize int
}

// Option customizes a Dispatcher
type Option func(*Dispatcher)

// WithDeadLetter publishes FAILED messages to dlq
func WithDeadLetter(dlq DeadLetterPublisher) Option {
	return func(d *Dispatcher) { d.dlq = dlq }
}

type Dispatcher struct {
	store    message.Store
	notifier message.Notifier // nil when the store cannot push
	pool     *ants.Pool       // nil runs batches inline
	dlq      DeadLetterPublisher
	logger   *slog.Logger
	interval time.Duration
	wake     chan struct{}

	mu       sync.Mutex
	handlers map[string]Handler
	inFlight map[string]bool
	batches  sync.WaitGroup
}

func New(store message.Store, cfg Config, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		logger:   logger,
		interval: cfg.Interval,
		wake:     make(chan struct{}, 1),
		handlers: make(map[string]Handler),
		inFlight: make(map[string]bool),
	}
	if d.interval <= 0 {
		d.interval = time.Second
	}
	if n, ok := store.(message.Notifier); ok {
		d.notifier = n
	}

	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		logger.Warn("Failed to create dispatch worker pool, batches will run inline", "size", cfg.PoolSize, "error", err)
	} else {
		d.pool = pool
	}

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterHandler binds agentID to h, replacing any previous handler
func (d *Dispatcher) RegisterHandler(agentID string, h Handler) {
	d.mu.Lock()
	_, replaced := d.handlers[agentID]
	d.handlers[agentID] = h
	d.mu.Unlock()

	d.logger.Info("Registered agent handler", "agent_id", agentID, "replaced", replaced)
	d.signal()
}

// Start dispatches until ctx is cancelled, woken by sends with a ticker fallback
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting dispatcher", "interval", d.interval.String(), "pooled", d.pool != nil)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	var work <-chan struct{}
	if d.notifier != nil {
		work = d.notifier.WorkAvailable()
	}

	d.DispatchOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopping due to context cancellation")
			return
		case <-work:
		case <-d.wake:
		case <-ticker.C:
		}
		d.DispatchOnce(ctx)
	}
}

// DispatchOnce submits one batch per registered agent that has pending work
// and no batch already running
func (d *Dispatcher) DispatchOnce(ctx context.Context) {
	for _, agentID := range d.agents() {
		if ctx.Err() != nil {
			return
		}

		pending, err := d.store.GetPendingForAgent(ctx, agentID)
		if err != nil {
			d.logger.Error("Failed to read pending messages", "agent_id", agentID, "error", err)
			continue
		}
		if len(pending) == 0 {
			continue
		}

		h, ok := d.claimAgent(agentID)
		if !ok {
			continue
		}

		d.batches.Add(1)
		batch := func() {
			defer d.batches.Done()
			defer d.releaseAgent(agentID)
			d.processBatch(ctx, agentID, h, pending)
		}

		if d.pool == nil {
			batch()
			continue
		}
		if err := d.pool.Submit(batch); err != nil {
			d.logger.Error("Failed to submit agent batch to worker pool", "agent_id", agentID, "error", err)
			d.batches.Done()
			d.releaseAgent(agentID)
		}
	}
}

// Wait blocks until every submitted batch has finished
func (d *Dispatcher) Wait() {
	d.batches.Wait()
}

// Shutdown waits for running batches and releases the pool
func (d *Dispatcher) Shutdown() {
	d.Wait()
	if d.pool != nil {
		d.logger.Info("Shutting down dispatch worker pool", "running_workers", d.pool.Running())
		d.pool.Release()
	}
}

func (d *Dispatcher) agents() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]string, 0, len(d.handlers))
	for id := range d.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d *Dispatcher) claimAgent(agentID string) (Handler, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inFlight[agentID] {
		return nil, false
	}
	h, ok := d.handlers[agentID]
	if !ok {
		return nil, false
	}
	d.inFlight[agentID] = true
	return h, true
}

func (d *Dispatcher) releaseAgent(agentID string) {
	d.mu.Lock()
	delete(d.inFlight, agentID)
	d.mu.Unlock()
	// messages may have arrived while the batch ran
	d.signal()
}

func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) processBatch(ctx context.Context, agentID string, h Handler, pending []*message.Message) {
	for _, msg := range pending {
		log := d.logger.With("agent_id", agentID, "message_id", msg.ID, "action", msg.Action)

		claimed, err := d.store.UpdateStatus(ctx, msg.ID, message.StatusProcessing)
		if err != nil || claimed == nil {
			log.Debug("Skipping message that is no longer pending", "error", err)
			metrics.MessagesDispatched.WithLabelValues(agentID, metrics.OutcomeSkipped).Inc()
			continue
		}

		started := time.Now()
		err = d.invoke(ctx, h, claimed)
		metrics.ObserveHandler(agentID, started)

		if err != nil {
			d.fail(ctx, log, agentID, claimed, err)
			continue
		}

		current, err := d.store.GetByID(ctx, claimed.ID)
		switch {
		case err != nil:
			log.Error("Failed to re-read message after handler", "error", err)
		case current == nil:
			// swept already
		case !current.Status.IsTerminal():
			log.Warn("Handler returned without responding, message left in place", "status", current.Status)
			metrics.MessagesDispatched.WithLabelValues(agentID, metrics.OutcomeUnhandled).Inc()
		default:
			metrics.MessagesDispatched.WithLabelValues(agentID, outcome(current.Status)).Inc()
		}
	}
}

// invoke runs h, turning a panic into a handler error
func (d *Dispatcher) invoke(ctx context.Context, h Handler, msg *message.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = message.NewHandlerError(message.ErrorKindHandler, fmt.Errorf("handler panic: %v", r))
		}
	}()
	return h.Handle(ctx, msg.Clone())
}

func (d *Dispatcher) fail(ctx context.Context, log *slog.Logger, agentID string, msg *message.Message, cause error) {
	kind := message.KindOf(cause)
	log.Error("Agent handler failed", "error_kind", kind, "error", cause)

	resp := map[string]any{}
	for k, v := range message.DetailsOf(cause) {
		resp[k] = v
	}
	resp["error"] = cause.Error()
	resp["errorKind"] = string(kind)

	failed, err := d.store.Respond(ctx, msg.ID, message.StatusFailed, resp, fmt.Sprintf("%s failed: %s", msg.Action, cause.Error()))
	if err != nil {
		// the handler responded before returning its error
		log.Warn("Could not mark message failed", "error", err)
		return
	}
	if failed == nil {
		return
	}
	metrics.MessagesDispatched.WithLabelValues(agentID, metrics.OutcomeFailed).Inc()
	d.deadLetter(ctx, log, failed, cause.Error())
}

func (d *Dispatcher) deadLetter(ctx context.Context, log *slog.Logger, msg *message.Message, reason string) {
	if d.dlq == nil {
		return
	}
	value, err := json.Marshal(msg)
	if err != nil {
		log.Error("Failed to encode failed message for DLQ", "error", err)
		return
	}
	if err := d.dlq.PublishToDLQ(ctx, dlqSource, msg.ID, value, reason); err != nil {
		log.Error("Failed to publish failed message to DLQ", "error", err)
	}
}

func outcome(s message.Status) string {
	switch s {
	case message.StatusCompleted:
		return metrics.OutcomeCompleted
	case message.StatusRejected:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}

package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
)

const (
	defaultPollInterval   = 5 * time.Second
	defaultBatchSize      = 50
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 100 * time.Millisecond
	defaultClearTimeout   = 3 * time.Second
)

var (
	reconcileClearAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_reconcile_clear_attempts_total",
		Help: "Total number of deferred cart-clear attempts grouped by result.",
	}, []string{"result"})
	reconcilePendingTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_reconcile_pending_tasks",
		Help: "Current number of pending cart-clear reconciliation tasks.",
	})
	reconcileOldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_reconcile_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest pending reconciliation task.",
	})
)

// EventPublisher публикует события реконсиляции (обычно *kafka.Producer).
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// WorkerOptions задаёт параметры reconcile worker.
type WorkerOptions struct {
	Logger         *log.Entry
	Publisher      EventPublisher
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Option настраивает Worker.
type Option func(*WorkerOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *WorkerOptions) {
		opts.Logger = logger
	}
}

// WithPublisher задаёт publisher для событий retried/DLQ.
func WithPublisher(publisher EventPublisher) Option {
	return func(opts *WorkerOptions) {
		opts.Publisher = publisher
	}
}

// WithPollInterval задаёт частоту опроса очереди.
func WithPollInterval(interval time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.PollInterval = interval
	}
}

// WithBatchSize задаёт размер батча задач.
func WithBatchSize(batchSize int) Option {
	return func(opts *WorkerOptions) {
		opts.BatchSize = batchSize
	}
}

// WithMaxAttempts задаёт число попыток очистки перед failed/DLQ.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *WorkerOptions) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.RetryBaseDelay = delay
	}
}

// Worker дочищает корзины, которые не удалось очистить сразу после записи
// заказа. Очистка идемпотентна, поэтому повторные попытки безопасны.
type Worker struct {
	repo           domain.ReconcileRepository
	cart           domain.CartService
	publisher      EventPublisher
	logger         *log.Entry
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewWorker создаёт reconcile worker.
func NewWorker(repo domain.ReconcileRepository, cart domain.CartService, options ...Option) *Worker {
	opts := WorkerOptions{
		PollInterval:   defaultPollInterval,
		BatchSize:      defaultBatchSize,
		MaxAttempts:    defaultMaxAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "reconcile-worker")
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}

	return &Worker{
		repo:           repo,
		cart:           cart,
		publisher:      opts.Publisher,
		logger:         logger,
		pollInterval:   opts.PollInterval,
		batchSize:      opts.BatchSize,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
	}
}

// Run запускает периодический polling очереди до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.cart == nil {
		w.logger.Warn("reconcile worker is disabled: repo or cart service is nil")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один polling-цикл.
func (w *Worker) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.refreshBacklogMetrics()

	tasks, err := w.repo.PullPending(w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending reconcile tasks")
		return
	}
	if len(tasks) == 0 {
		return
	}

	for _, task := range tasks {
		if ctx.Err() != nil {
			return
		}

		if err := w.clearWithRetry(ctx, task); err != nil {
			w.logger.WithError(err).WithFields(log.Fields{
				"task_id":  task.ID,
				"user_id":  task.UserID,
				"order_id": task.OrderID,
			}).Error("cart clear failed after retries")
			reconcileClearAttempts.WithLabelValues("failed").Inc()

			if dlqErr := w.publishToDLQ(task, err); dlqErr != nil {
				w.logger.WithError(dlqErr).WithField("task_id", task.ID).Warn("failed to publish reconcile task to DLQ")
			}
			if markErr := w.repo.MarkFailed(task.ID); markErr != nil {
				w.logger.WithError(markErr).WithField("task_id", task.ID).Warn("failed to mark reconcile task as failed")
			}
			continue
		}

		if err := w.repo.MarkDone(task.ID); err != nil {
			w.logger.WithError(err).WithField("task_id", task.ID).Warn("failed to mark reconcile task as done")
		}
		w.publishRetried(task)
	}

	w.refreshBacklogMetrics()
}

func (w *Worker) clearWithRetry(ctx context.Context, task domain.ReconcileTask) error {
	var lastErr error

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		clearCtx, cancel := context.WithTimeout(ctx, defaultClearTimeout)
		err := w.cart.ClearCart(clearCtx, task.UserID)
		cancel()
		if err == nil {
			reconcileClearAttempts.WithLabelValues("cleared").Inc()
			return nil
		}
		lastErr = err
		reconcileClearAttempts.WithLabelValues("retry_error").Inc()

		if attempt >= w.maxAttempts {
			break
		}

		delay := w.retryBackoff(attempt)
		if delay <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("clear cart failed after %d attempts: %w", w.maxAttempts, lastErr)
}

func (w *Worker) refreshBacklogMetrics() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect reconcile backlog stats")
		return
	}

	reconcilePendingTasks.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		reconcileOldestPendingAge.Set(0)
		return
	}

	age := time.Since(stats.OldestPendingAt).Seconds()
	if age < 0 {
		age = 0
	}
	reconcileOldestPendingAge.Set(age)
}

func (w *Worker) retryBackoff(attempt int) time.Duration {
	if w.retryBaseDelay <= 0 {
		return 0
	}

	const maxDuration = time.Duration(1<<63 - 1)
	delay := w.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > maxDuration/2 {
			return maxDuration
		}
		delay *= 2
	}
	return delay
}

func (w *Worker) publishRetried(task domain.ReconcileTask) {
	if w.publisher == nil {
		return
	}

	event := kafka.NewCheckoutEvent(kafka.EventTypeCartClearRetried, task.UserID, task.OrderID, map[string]interface{}{
		"task_id": task.ID,
	})
	if err := w.publisher.PublishEvent(kafka.TopicCheckoutEvents, task.UserID, event); err != nil {
		w.logger.WithError(err).WithField("task_id", task.ID).Warn("failed to publish cart.clear_retried event")
	}
}

func (w *Worker) publishToDLQ(task domain.ReconcileTask, clearErr error) error {
	if w.publisher == nil {
		return nil
	}

	event := kafka.NewCheckoutEvent(kafka.EventTypeCartClearFailed, task.UserID, task.OrderID, map[string]interface{}{
		"task_id":     task.ID,
		"reason":      task.Reason,
		"clear_error": clearErr.Error(),
	})
	if err := w.publisher.PublishEvent(kafka.TopicReconcileDLQ, task.UserID, event); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}

	return nil
}

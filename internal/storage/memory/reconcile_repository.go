package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// reconcileRecord хранит задачу и служебные поля для in-memory реализации.
type reconcileRecord struct {
	task       domain.ReconcileTask
	status     string
	attemptCnt int
	createdAt  time.Time
	updatedAt  time.Time
}

// reconcileRepositoryInMemory — простое in-memory хранилище задач на
// отложенную очистку корзин.
type reconcileRepositoryInMemory struct {
	mu      sync.RWMutex
	records map[string]*reconcileRecord
}

// NewReconcileRepository создаёт in-memory реализацию очереди реконсиляции.
func NewReconcileRepository() *reconcileRepositoryInMemory {
	return &reconcileRepositoryInMemory{records: make(map[string]*reconcileRecord)}
}

// Enqueue сохраняет задачу со статусом `pending` и возвращает её с присвоенным ID.
func (r *reconcileRepositoryInMemory) Enqueue(task domain.ReconcileTask) (domain.ReconcileTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.records[task.ID] = &reconcileRecord{
		task:      task,
		status:    "pending",
		createdAt: now,
		updatedAt: now,
	}
	return task, nil
}

// PullPending возвращает до limit задач со статусом `pending`, самые старые первыми.
func (r *reconcileRepositoryInMemory) PullPending(limit int) ([]domain.ReconcileTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	pending := make([]*reconcileRecord, 0, len(r.records))
	for _, rec := range r.records {
		if rec.status == "pending" {
			pending = append(pending, rec)
		}
	}
	// Стабильный порядок от старых к новым, чтобы backlog не голодал.
	for i := 1; i < len(pending); i++ {
		for j := i; j > 0 && pending[j].createdAt.Before(pending[j-1].createdAt); j-- {
			pending[j], pending[j-1] = pending[j-1], pending[j]
		}
	}

	result := make([]domain.ReconcileTask, 0, limit)
	for _, rec := range pending {
		result = append(result, rec.task)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Stats возвращает размер backlog и время самой старой pending задачи.
func (r *reconcileRepositoryInMemory) Stats() (domain.ReconcileStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.ReconcileStats{}
	for _, rec := range r.records {
		if rec.status != "pending" {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || rec.createdAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = rec.createdAt
		}
	}
	return stats, nil
}

// MarkDone фиксирует успешную очистку корзины.
func (r *reconcileRepositoryInMemory) MarkDone(id string) error {
	return r.setStatus(id, "done")
}

// MarkFailed фиксирует неудачную попытку, задача остаётся у операторов.
func (r *reconcileRepositoryInMemory) MarkFailed(id string) error {
	return r.setStatus(id, "failed")
}

func (r *reconcileRepositoryInMemory) setStatus(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return domain.ErrReconcileTaskNotFound
	}
	record.status = status
	record.attemptCnt++
	record.updatedAt = time.Now().UTC()
	return nil
}

// AllPending возвращает копию всех pending задач (используется в тестах).
func (r *reconcileRepositoryInMemory) AllPending() []domain.ReconcileTask {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.ReconcileTask, 0, len(r.records))
	for _, rec := range r.records {
		if rec.status == "pending" {
			result = append(result, rec.task)
		}
	}
	return result
}

var _ domain.ReconcileRepository = (*reconcileRepositoryInMemory)(nil)

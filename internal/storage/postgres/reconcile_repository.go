package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

type reconcileRepository struct {
	db *sql.DB
}

// NewReconcileRepository создаёт PostgreSQL-реализацию ReconcileRepository.
func NewReconcileRepository(store *Store) domain.ReconcileRepository {
	return &reconcileRepository{db: store.DB()}
}

func (r *reconcileRepository) Enqueue(task domain.ReconcileTask) (domain.ReconcileTask, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reconcile_tasks (
			id, user_id, order_id, reason, status, attempt_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,'pending',0,$5,$6)
	`,
		task.ID, task.UserID, task.OrderID, task.Reason, now, now,
	)
	if err != nil {
		return domain.ReconcileTask{}, fmt.Errorf("enqueue reconcile task: %w", err)
	}

	return task, nil
}

func (r *reconcileRepository) PullPending(limit int) ([]domain.ReconcileTask, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, order_id, reason
		FROM reconcile_tasks
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending reconcile tasks: %w", err)
	}
	defer rows.Close()

	result := make([]domain.ReconcileTask, 0, limit)
	for rows.Next() {
		var task domain.ReconcileTask
		if err := rows.Scan(&task.ID, &task.UserID, &task.OrderID, &task.Reason); err != nil {
			return nil, fmt.Errorf("scan reconcile task: %w", err)
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconcile rows: %w", err)
	}

	return result, nil
}

func (r *reconcileRepository) Stats() (domain.ReconcileStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		stats  domain.ReconcileStats
		oldest sql.NullTime
	)

	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(created_at)
		FROM reconcile_tasks
		WHERE status = 'pending'
	`).Scan(&stats.PendingCount, &oldest); err != nil {
		return domain.ReconcileStats{}, fmt.Errorf("reconcile stats query failed: %w", err)
	}

	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}

	return stats, nil
}

func (r *reconcileRepository) MarkDone(id string) error {
	return r.markStatus(id, "done")
}

func (r *reconcileRepository) MarkFailed(id string) error {
	return r.markStatus(id, "failed")
}

func (r *reconcileRepository) markStatus(id, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE reconcile_tasks
		SET status = $2,
		    attempt_count = attempt_count + 1,
		    updated_at = $3
		WHERE id = $1
	`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark reconcile task as %s: %w", status, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for reconcile %s: %w", status, err)
	}
	if affected == 0 {
		return domain.ErrReconcileTaskNotFound
	}

	return nil
}

var _ domain.ReconcileRepository = (*reconcileRepository)(nil)

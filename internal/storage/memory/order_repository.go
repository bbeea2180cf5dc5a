package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
	// Индекс уникальности на пару (userID, idempotencyKey), как unique index в postgres.
	byIdemKey map[string]string
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:     make(map[string]domain.Order),
		byIdemKey: make(map[string]string),
	}
}

func idemIndexKey(userID, idempotencyKey string) string {
	return userID + "\x00" + idempotencyKey
}

// Create сохраняет новый заказ, если ID и пара (userID, idempotencyKey) ещё не заняты.
// Заказ с нарушенными инвариантами не пишется: хранилище — последний рубеж.
func (r *orderRepositoryInMemory) Create(ctx context.Context, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return fmt.Errorf("invalid order: %w", errs[0])
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderExists
	}
	if order.IdempotencyKey != "" {
		key := idemIndexKey(order.UserID, order.IdempotencyKey)
		if _, exists := r.byIdemKey[key]; exists {
			return domain.ErrOrderExists
		}
		r.byIdemKey[key] = order.ID
	}
	// Сохраняем копию позиций, чтобы избежать непредсказуемых мутаций извне.
	order.Lines = append([]domain.OrderLine(nil), order.Lines...)
	r.items[order.ID] = order
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(ctx context.Context, id string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Lines = append([]domain.OrderLine(nil), order.Lines...)
	return order, nil
}

// ListByUser возвращает заказы пользователя от новых к старым,
// ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.UserID != userID {
			continue
		}
		order.Lines = append([]domain.OrderLine(nil), order.Lines...)
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)

package domain

import (
	"context"
	"time"
)

// CartService описывает взаимодействие с cart store.
type CartService interface {
	// FetchCart возвращает текущий снимок корзины пользователя.
	// Пустая корзина — пустой снимок, а не ошибка.
	FetchCart(ctx context.Context, userID string) (CartSnapshot, error)
	// ClearCart очищает корзину после записи заказа. At-least-once:
	// очистка уже пустой корзины — no-op успех.
	ClearCart(ctx context.Context, userID string) error
}

// CatalogService описывает чтение актуальной цены товара из каталога.
type CatalogService interface {
	// UnitPrice возвращает текущую цену за единицу в минимальных единицах
	// или ErrProductNotFound / ErrCatalogUnavailable.
	UnitPrice(ctx context.Context, productID string) (int64, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create атомарно сохраняет заказ вместе со всеми позициями.
	// Возвращает ErrOrderExists при конфликте ID или idempotency-ключа.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает заказы пользователя с опциональным ограничением на количество.
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	// Delete освобождает ключ, не фиксируя исход: повтор с тем же ключом
	// выполнится заново. Используется, когда исход запроса неизвестен.
	Delete(key string) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// ReconcileRepository хранит задачи на повторную очистку корзин, которые
// не удалось очистить после записи заказа.
type ReconcileRepository interface {
	Enqueue(task ReconcileTask) (ReconcileTask, error)
	PullPending(limit int) ([]ReconcileTask, error)
	Stats() (ReconcileStats, error)
	MarkDone(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла попытки checkout.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// ReconcileTask описывает одну отложенную очистку корзины.
type ReconcileTask struct {
	ID      string
	UserID  string
	OrderID string
	Reason  string
}

// ReconcileStats описывает текущее состояние backlog очереди реконсиляции.
type ReconcileStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// TimelineEvent описывает событие в жизненном цикле попытки checkout.
type TimelineEvent struct {
	OrderID  string
	UserID   string
	Stage    string
	Reason   string
	Occurred time.Time
}

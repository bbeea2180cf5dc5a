package cart

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// MockService — конфигурируемая заглушка CartService для тестов и dev-режима.
type MockService struct {
	mu sync.Mutex

	Carts    map[string]domain.CartSnapshot
	FetchErr error
	ClearErr error

	FetchCalls int
	ClearCalls int
}

// NewMockService возвращает mock с пустыми корзинами по умолчанию.
func NewMockService() *MockService {
	return &MockService{Carts: make(map[string]domain.CartSnapshot)}
}

// SetCart задаёт содержимое корзины пользователя.
func (m *MockService) SetCart(userID string, snapshot domain.CartSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Carts[userID] = snapshot
}

// FetchCart возвращает заранее настроенную корзину или ошибку и считает вызовы.
func (m *MockService) FetchCart(_ context.Context, userID string) (domain.CartSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchCalls++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}

	snapshot := m.Carts[userID]
	result := make(domain.CartSnapshot, len(snapshot))
	copy(result, snapshot)
	return result, nil
}

// ClearCart удаляет корзину или возвращает настроенную ошибку и считает вызовы.
func (m *MockService) ClearCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}

	delete(m.Carts, userID)
	return nil
}

var _ domain.CartService = (*MockService)(nil)

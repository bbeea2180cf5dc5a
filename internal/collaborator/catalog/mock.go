package catalog

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// MockService — конфигурируемая заглушка CatalogService для тестов и dev-режима.
type MockService struct {
	mu sync.Mutex

	Prices map[string]int64
	// Errs задаёт ошибку для конкретного ProductID; перекрывает Prices.
	Errs map[string]error

	LookupCalls int
}

// NewMockService возвращает mock без товаров: любой lookup даст ErrProductNotFound.
func NewMockService() *MockService {
	return &MockService{
		Prices: make(map[string]int64),
		Errs:   make(map[string]error),
	}
}

// SetPrice задаёт цену товара в минимальных единицах.
func (m *MockService) SetPrice(productID string, priceMinor int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prices[productID] = priceMinor
}

// SetErr задаёт ошибку для конкретного товара. nil снимает ошибку.
func (m *MockService) SetErr(productID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.Errs, productID)
		return
	}
	m.Errs[productID] = err
}

// UnitPrice возвращает настроенную цену или ошибку и считает вызовы.
func (m *MockService) UnitPrice(_ context.Context, productID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LookupCalls++
	if err, ok := m.Errs[productID]; ok {
		return 0, err
	}
	price, ok := m.Prices[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	return price, nil
}

var _ domain.CatalogService = (*MockService)(nil)

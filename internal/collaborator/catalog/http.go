package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	defaultRequestTimeout = 3 * time.Second
	breakerOpenTimeout    = 10 * time.Second
	breakerMaxFailures    = 5
)

// HTTPClient читает актуальные цены из каталога по HTTP. Запросы идут через
// circuit breaker: после серии отказов каталог временно считается недоступным
// без реальных сетевых вызовов.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[int64]
	logger  *log.Entry
}

// NewHTTPClient создаёт клиент каталога для заданного базового URL.
func NewHTTPClient(baseURL string, logger *log.Entry) *HTTPClient {
	if logger == nil {
		logger = log.WithField("component", "catalog-client")
	}

	settings := gobreaker.Settings{
		Name:    "catalog",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		IsSuccessful: func(err error) bool {
			// Отсутствие товара — бизнес-ответ каталога, а не сбой транспорта.
			return err == nil || errors.Is(err, domain.ErrProductNotFound)
		},
	}

	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		breaker: gobreaker.NewCircuitBreaker[int64](settings),
		logger:  logger,
	}
}

type priceResponse struct {
	ProductID  string `json:"product_id"`
	PriceMinor int64  `json:"price_minor"`
	Available  bool   `json:"available"`
}

// UnitPrice возвращает текущую цену за единицу товара в минимальных единицах.
func (c *HTTPClient) UnitPrice(ctx context.Context, productID string) (int64, error) {
	price, err := c.breaker.Execute(func() (int64, error) {
		return c.fetchPrice(ctx, productID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, fmt.Errorf("%w: circuit breaker open", domain.ErrCatalogUnavailable)
		}
		return 0, err
	}
	return price, nil
}

func (c *HTTPClient) fetchPrice(ctx context.Context, productID string) (int64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/products/%s/price", c.baseURL, url.PathEscape(productID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("product_id", productID).Warn("catalog request failed")
		return 0, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("%w: unexpected status %d", domain.ErrCatalogUnavailable, resp.StatusCode)
	}

	var payload priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: decode price response: %v", domain.ErrCatalogUnavailable, err)
	}
	if !payload.Available {
		return 0, fmt.Errorf("%w: %s is not available", domain.ErrProductNotFound, productID)
	}
	if payload.PriceMinor < 0 {
		return 0, fmt.Errorf("%w: negative price for %s", domain.ErrCatalogUnavailable, productID)
	}

	return payload.PriceMinor, nil
}

var _ domain.CatalogService = (*HTTPClient)(nil)

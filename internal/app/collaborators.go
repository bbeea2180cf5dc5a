package app

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/collaborator/cart"
	"github.com/vladislavdragonenkov/checkout/internal/collaborator/catalog"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// collaborators объединяет внешние зависимости checkout: cart store и каталог.
// redisClient заполнен только при реальном подключении и нужен для health
// check и закрытия соединения.
type collaborators struct {
	cart        domain.CartService
	catalog     domain.CatalogService
	redisClient *redis.Client
	redisCart   *cart.RedisClient
}

// initCollaborators подключает cart store и каталог по конфигурации.
// Ненастроенная интеграция допустима только при AllowMockIntegrations.
func initCollaborators(cfg Config, logger *log.Entry) (*collaborators, error) {
	deps := &collaborators{}

	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		deps.redisClient = client
		deps.redisCart = cart.NewRedisClient(client, logger.WithField("component", "cart-client"))
		deps.cart = deps.redisCart
		logger.WithField("redis_addr", addr).Info("cart store connected")
	} else if cfg.AllowMockIntegrations {
		logger.Warn("redis is not configured, using in-memory cart store mock")
		deps.cart = cart.NewMockService()
	} else {
		return nil, fmt.Errorf("cart store is not configured: set redis address or allow mock integrations")
	}

	if baseURL := strings.TrimSpace(cfg.CatalogBaseURL); baseURL != "" {
		deps.catalog = catalog.NewHTTPClient(baseURL, logger.WithField("component", "catalog-client"))
		logger.WithField("catalog_url", baseURL).Info("catalog client configured")
	} else if cfg.AllowMockIntegrations {
		logger.Warn("catalog is not configured, using in-memory catalog mock")
		deps.catalog = catalog.NewMockService()
	} else {
		return nil, fmt.Errorf("catalog is not configured: set catalog base URL or allow mock integrations")
	}

	return deps, nil
}

// close закрывает подключение к Redis, если оно было установлено.
func (c *collaborators) close(logger *log.Entry) {
	if c == nil || c.redisClient == nil {
		return
	}
	if err := c.redisClient.Close(); err != nil {
		logger.WithError(err).Warn("failed to close redis client")
	}
}

package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const defaultOpTimeout = 3 * time.Second

// RedisClient читает и очищает корзины в Redis, где их ведёт cart store.
// Корзина хранится как JSON-массив позиций под ключом cart:user:<id>.
type RedisClient struct {
	client    *redis.Client
	logger    *log.Entry
	opTimeout time.Duration
}

// NewRedisClient создаёт клиент cart store поверх готового redis-подключения.
func NewRedisClient(client *redis.Client, logger *log.Entry) *RedisClient {
	if logger == nil {
		logger = log.WithField("component", "cart-client")
	}
	return &RedisClient{
		client:    client,
		logger:    logger,
		opTimeout: defaultOpTimeout,
	}
}

type cartItemPayload struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

// FetchCart возвращает снимок корзины пользователя. Отсутствие ключа — это
// пустая корзина; ошибка транспорта — ErrCartUnavailable, их нельзя путать.
func (c *RedisClient) FetchCart(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	data, err := c.client.Get(opCtx, cartKey(userID)).Result()
	if err == redis.Nil {
		return domain.CartSnapshot{}, nil
	}
	if err != nil {
		c.logger.WithError(err).WithField("user_id", userID).Warn("cart fetch failed")
		return nil, fmt.Errorf("%w: fetch cart: %v", domain.ErrCartUnavailable, err)
	}

	var payload []cartItemPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("%w: decode cart payload: %v", domain.ErrCartUnavailable, err)
	}

	snapshot := make(domain.CartSnapshot, 0, len(payload))
	for _, item := range payload {
		snapshot = append(snapshot, domain.CartItem{
			ProductID: item.ProductID,
			Qty:       item.Qty,
		})
	}

	return snapshot, nil
}

// ClearCart удаляет корзину пользователя. Удаление отсутствующего ключа —
// no-op успех, поэтому повторная очистка безопасна.
func (c *RedisClient) ClearCart(ctx context.Context, userID string) error {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Del(opCtx, cartKey(userID)).Err(); err != nil {
		c.logger.WithError(err).WithField("user_id", userID).Warn("cart clear failed")
		return fmt.Errorf("%w: clear cart: %v", domain.ErrCartUnavailable, err)
	}
	return nil
}

// Ping проверяет доступность cart store для health checks.
func (c *RedisClient) Ping(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	return c.client.Ping(opCtx).Err()
}

var _ domain.CartService = (*RedisClient)(nil)

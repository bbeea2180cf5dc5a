package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const defaultPricingConcurrency = 8

// priceResolver превращает снимок корзины в позиции заказа, подтягивая
// актуальные цены из каталога. Lookups для разных товаров независимы и
// выполняются конкурентно с ограничением параллелизма.
type priceResolver struct {
	catalog       domain.CatalogService
	logger        *log.Entry
	maxConcurrent int
	retryDelay    time.Duration
}

func newPriceResolver(catalog domain.CatalogService, logger *log.Entry) *priceResolver {
	if logger == nil {
		logger = log.WithField("component", "price-resolver")
	}
	return &priceResolver{
		catalog:       catalog,
		logger:        logger,
		maxConcurrent: defaultPricingConcurrency,
		retryDelay:    defaultRetryDelay,
	}
}

// Resolve оценивает каждый distinct товар снимка ровно один раз и собирает
// позиции заказа в исходном порядке снимка. Fail-fast: первый неоценённый
// товар валит всю операцию — частичный заказ не собирается, чтобы не менять
// состав покупки без согласия пользователя.
func (r *priceResolver) Resolve(ctx context.Context, snapshot domain.CartSnapshot) ([]domain.OrderLine, error) {
	if snapshot.IsEmpty() {
		return []domain.OrderLine{}, nil
	}

	distinct := make([]string, 0, len(snapshot))
	seen := make(map[string]struct{}, len(snapshot))
	for _, item := range snapshot {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		distinct = append(distinct, item.ProductID)
	}

	prices := make(map[string]int64, len(distinct))
	var mu sync.Mutex

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrent)

	for _, productID := range distinct {
		productID := productID
		g.Go(func() error {
			price, err := withRetry(groupCtx, r.logger, "catalog.unit_price", r.retryDelay,
				func(callCtx context.Context) (int64, error) {
					return r.catalog.UnitPrice(callCtx, productID)
				})
			if err != nil {
				return &domain.PricingError{ProductID: productID, Err: err}
			}

			mu.Lock()
			prices[productID] = price
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	lines := make([]domain.OrderLine, 0, len(snapshot))
	for _, item := range snapshot {
		price, ok := prices[item.ProductID]
		if !ok {
			// Сюда можно попасть только при гонке с отменой контекста.
			return nil, &domain.PricingError{
				ProductID: item.ProductID,
				Err:       fmt.Errorf("price lookup did not complete"),
			}
		}
		lines = append(lines, domain.OrderLine{
			ID:         uuid.NewString(),
			ProductID:  item.ProductID,
			Qty:        item.Qty,
			PriceMinor: price,
			CreatedAt:  now,
		})
	}

	return lines, nil
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

// CredentialVerifier извлекает userID из bearer credential.
type CredentialVerifier interface {
	Verify(credential string) (string, error)
}

// Orchestrator описывает единственную внешнюю операцию сервиса.
type Orchestrator interface {
	// PlaceOrder проводит одну попытку checkout от credential до заказа.
	PlaceOrder(ctx context.Context, credential, idempotencyKey string) (domain.Confirmation, error)
}

// orchestrator реализует последовательность шагов checkout:
// Verify → FetchCart → ResolvePrices → Persist → ClearCart.
// Это единственный компонент, знающий всех collaborator'ов, и единственный
// владелец политики отказов: abort до записи заказа всегда безопасен,
// после записи заказ не откатывается из-за неочищенной корзины.
type orchestrator struct {
	verifier  CredentialVerifier
	cart      domain.CartService
	resolver  *priceResolver
	orders    domain.OrderRepository
	reconcile domain.ReconcileRepository
	timeline  domain.TimelineRepository
	logger    *log.Entry
	metrics   *metrics.CheckoutMetrics
	producer  *kafka.Producer // опциональный Kafka producer для event-driven архитектуры

	currency   string
	retryDelay time.Duration
}

const defaultCurrency = "USD"

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
func NewOrchestrator(
	verifier CredentialVerifier,
	cart domain.CartService,
	catalog domain.CatalogService,
	orders domain.OrderRepository,
	reconcile domain.ReconcileRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &orchestrator{
		verifier:   verifier,
		cart:       cart,
		resolver:   newPriceResolver(catalog, logger),
		orders:     orders,
		reconcile:  reconcile,
		timeline:   timeline,
		logger:     logger,
		metrics:    metrics.NewCheckoutMetrics(),
		currency:   defaultCurrency,
		retryDelay: defaultRetryDelay,
	}
}

// NewOrchestratorWithKafka создаёт оркестратор, публикующий события checkout в Kafka.
func NewOrchestratorWithKafka(
	verifier CredentialVerifier,
	cart domain.CartService,
	catalog domain.CatalogService,
	orders domain.OrderRepository,
	reconcile domain.ReconcileRepository,
	timeline domain.TimelineRepository,
	producer *kafka.Producer,
	logger *log.Entry,
) Orchestrator {
	o := NewOrchestrator(verifier, cart, catalog, orders, reconcile, timeline, logger).(*orchestrator)
	o.producer = producer
	return o
}

// WithCurrency возвращает тот же оркестратор, записывающий заказы в указанной
// валюте. Пустая строка оставляет валюту по умолчанию.
func WithCurrency(o Orchestrator, currency string) Orchestrator {
	if impl, ok := o.(*orchestrator); ok && strings.TrimSpace(currency) != "" {
		impl.currency = strings.ToUpper(strings.TrimSpace(currency))
	}
	return o
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	verifier CredentialVerifier,
	cart domain.CartService,
	catalog domain.CatalogService,
	orders domain.OrderRepository,
	reconcile domain.ReconcileRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) Orchestrator {
	o := NewOrchestrator(verifier, cart, catalog, orders, reconcile, timeline, logger).(*orchestrator)
	o.metrics = nil
	o.resolver.retryDelay = 0
	o.retryDelay = 0
	return o
}

// PlaceOrder проводит одну попытку checkout. Терминальная стадия попытки
// определяет результат: заказ с очищенной корзиной, заказ с отложенной
// очисткой или классифицированная ошибка без побочных эффектов.
func (o *orchestrator) PlaceOrder(ctx context.Context, credential, idempotencyKey string) (domain.Confirmation, error) {
	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordCheckoutDuration(time.Since(start))
			o.metrics.RecordCheckoutFinished()
		}
	}()

	// Started → Authenticated
	userID, err := o.verifier.Verify(credential)
	if err != nil {
		o.failAttempt("", "", "auth_failed", err)
		return domain.Confirmation{}, err
	}

	logger := o.logger.WithField("user_id", userID)
	o.publishEvent(kafka.EventTypeCheckoutStarted, userID, "", nil)

	// Authenticated → CartFetched
	snapshot, err := withRetry(ctx, logger, "cart.fetch", o.retryDelay,
		func(callCtx context.Context) (domain.CartSnapshot, error) {
			return o.cart.FetchCart(callCtx, userID)
		})
	if err != nil {
		logger.WithError(err).Warn("cart fetch failed")
		o.failAttempt(userID, "", "cart_unavailable", err)
		return domain.Confirmation{}, fmt.Errorf("fetch cart: %w", err)
	}
	if snapshot.IsEmpty() {
		o.failAttempt(userID, "", "empty_cart", domain.ErrEmptyCart)
		return domain.Confirmation{}, domain.ErrEmptyCart
	}

	// Дубликаты ProductID сливаются до оценки: один lookup и одна позиция
	// заказа на товар, количества суммируются.
	merged := snapshot.Merged()
	if errs := merged.Validate(); len(errs) > 0 {
		err := errs[0]
		o.failAttempt(userID, "", "invalid_cart", err)
		return domain.Confirmation{}, err
	}

	// CartFetched → Priced
	lines, err := o.resolver.Resolve(ctx, merged)
	if err != nil {
		logger.WithError(err).Warn("pricing failed")
		o.failAttempt(userID, "", "pricing_failed", err)
		return domain.Confirmation{}, err
	}

	totalMinor, err := domain.ComputeTotalMinor(lines)
	if err != nil {
		logger.WithError(err).Error("order total cannot be represented")
		o.failAttempt(userID, "", "invalid_order", err)
		return domain.Confirmation{}, err
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Currency:       o.currency,
		AmountMinor:    totalMinor,
		Lines:          lines,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		err := errs[0]
		logger.WithError(err).Error("built order violates invariants")
		o.failAttempt(userID, "", "invalid_order", err)
		return domain.Confirmation{}, err
	}

	// Отмена до записи — чистый abort без побочных эффектов.
	if err := ctx.Err(); err != nil {
		o.failAttempt(userID, "", "canceled", err)
		return domain.Confirmation{}, err
	}

	// Priced → Persisted. Заголовок и позиции пишутся одной атомарной
	// единицей; провал записи не требует компенсаций — снаружи ещё ничего
	// не изменилось. Запись не повторяется вслепую: повтор после timeout
	// мог бы продублировать заказ, это зона idempotency-ключа.
	if err := o.orders.Create(ctx, order); err != nil {
		if ctx.Err() != nil && !errors.Is(err, domain.ErrOrderExists) {
			// Отмена совпала с записью: исход неизвестен, не повторяем.
			logger.WithError(err).Warn("persist interrupted by cancellation")
			o.failAttempt(userID, order.ID, "indeterminate", err)
			return domain.Confirmation{}, domain.ErrCheckoutIndeterminate
		}
		logger.WithError(err).WithField("order_id", order.ID).Error("persist order failed")
		o.failAttempt(userID, order.ID, "persist_failed", err)
		return domain.Confirmation{}, fmt.Errorf("persist order: %w", err)
	}

	o.appendTimeline(order.ID, userID, domain.CheckoutStagePersisted, "")
	o.publishEvent(kafka.EventTypeOrderCreated, userID, order.ID, map[string]interface{}{
		"amount_minor": order.AmountMinor,
		"currency":     order.Currency,
		"lines_count":  len(order.Lines),
	})

	confirmation := domain.Confirmation{
		OrderID:     order.ID,
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
		Lines:       order.Lines,
		CartCleared: true,
	}

	// Persisted → CartCleared. Очистка идёт строго после коммита заказа:
	// обратный порядок при сбое терял бы покупку без следа и без корзины.
	// Провал очистки не откатывает заказ — он уходит в реконсиляцию.
	clearCtx := ctx
	if ctx.Err() != nil {
		clearCtx = context.Background()
	}
	if _, err := withRetry(clearCtx, logger, "cart.clear", o.retryDelay,
		func(callCtx context.Context) (struct{}, error) {
			return struct{}{}, o.cart.ClearCart(callCtx, userID)
		}); err != nil {
		logger.WithError(err).WithField("order_id", order.ID).Warn("cart clear failed, enqueueing reconciliation")
		confirmation.CartCleared = false
		o.enqueueReconcile(userID, order.ID, err)
		o.appendTimeline(order.ID, userID, domain.CheckoutStageCartCleared, "deferred: "+err.Error())
	} else {
		o.appendTimeline(order.ID, userID, domain.CheckoutStageCartCleared, "")
	}

	if o.metrics != nil {
		o.metrics.RecordCheckoutCompleted()
	}
	o.publishEvent(kafka.EventTypeCheckoutCompleted, userID, order.ID, map[string]interface{}{
		"cart_cleared": confirmation.CartCleared,
	})
	logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"amount_minor": order.AmountMinor,
		"cart_cleared": confirmation.CartCleared,
	}).Info("checkout completed")

	return confirmation, nil
}

func (o *orchestrator) failAttempt(userID, orderID, category string, rootErr error) {
	if o.metrics != nil {
		o.metrics.RecordCheckoutFailed(category)
	}
	if userID != "" {
		o.appendTimeline(orderID, userID, domain.CheckoutStageFailed, rootErr.Error())
		o.publishEvent(kafka.EventTypeCheckoutFailed, userID, orderID, map[string]interface{}{
			"category": category,
			"reason":   rootErr.Error(),
		})
	}
}

func (o *orchestrator) enqueueReconcile(userID, orderID string, clearErr error) {
	if o.metrics != nil {
		o.metrics.RecordCartClearFailed()
	}

	task := domain.ReconcileTask{
		UserID:  userID,
		OrderID: orderID,
		Reason:  clearErr.Error(),
	}
	if _, err := o.reconcile.Enqueue(task); err != nil {
		// Очередь тоже недоступна: остаётся только громкий лог для операторов.
		o.logger.WithError(err).WithFields(log.Fields{
			"user_id":  userID,
			"order_id": orderID,
		}).Error("failed to enqueue cart-clear reconciliation")
		return
	}

	if o.metrics != nil {
		o.metrics.RecordReconcileTask()
	}
	o.publishEvent(kafka.EventTypeCartClearFailed, userID, orderID, map[string]interface{}{
		"reason": clearErr.Error(),
	})
}

func (o *orchestrator) appendTimeline(orderID, userID string, stage domain.CheckoutStage, reason string) {
	if o.timeline == nil {
		return
	}

	event := domain.TimelineEvent{
		OrderID:  orderID,
		UserID:   userID,
		Stage:    string(stage),
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}
	if err := o.timeline.Append(event); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"stage":    stage,
		}).Warn("append timeline event failed")
	}
}

// publishEvent публикует событие checkout в Kafka (если producer настроен).
func (o *orchestrator) publishEvent(eventType kafka.EventType, userID, orderID string, metadata map[string]interface{}) {
	if o.producer == nil {
		return
	}

	event := kafka.NewCheckoutEvent(eventType, userID, orderID, metadata)
	if err := o.producer.PublishEvent(kafka.TopicCheckoutEvents, userID, event); err != nil {
		// Kafka опциональный: ошибку логируем, checkout не прерываем.
		o.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"user_id":    userID,
		}).Warn("failed to publish checkout event to kafka")
	}
}

var _ Orchestrator = (*orchestrator)(nil)

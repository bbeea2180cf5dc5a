package integration

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/checkout/internal/collaborator/cart"
	"github.com/vladislavdragonenkov/checkout/internal/collaborator/catalog"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/auth"
	"github.com/vladislavdragonenkov/checkout/internal/service/checkout"
	"github.com/vladislavdragonenkov/checkout/internal/service/reconcile"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

// CheckoutLifecycleTestSuite проверяет полный жизненный цикл checkout
// на in-memory стеке: от credential до заказа и очистки корзины,
// включая восстановление отложенных очисток reconcile-воркером.
type CheckoutLifecycleTestSuite struct {
	suite.Suite
	verifier     *auth.Verifier
	cart         *cart.MockService
	catalog      *catalog.MockService
	orders       domain.OrderRepository
	reconcile    domain.ReconcileRepository
	timeline     domain.TimelineRepository
	orchestrator checkout.Orchestrator
}

func (suite *CheckoutLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	verifier, err := auth.NewVerifier([]byte("integration-secret"))
	require.NoError(suite.T(), err)
	suite.verifier = verifier

	suite.cart = cart.NewMockService()
	suite.cart.SetCart("user-1", domain.CartSnapshot{
		{ProductID: "prod-a", Qty: 2},
		{ProductID: "prod-b", Qty: 1},
	})

	suite.catalog = catalog.NewMockService()
	suite.catalog.SetPrice("prod-a", 1250)
	suite.catalog.SetPrice("prod-b", 499)

	suite.orders = memory.NewOrderRepository()
	suite.reconcile = memory.NewReconcileRepository()
	suite.timeline = memory.NewTimelineRepository()

	suite.orchestrator = checkout.NewOrchestratorWithoutMetrics(
		verifier, suite.cart, suite.catalog,
		suite.orders, suite.reconcile, suite.timeline,
		logger,
	)
}

func (suite *CheckoutLifecycleTestSuite) issueToken(userID string) string {
	token, err := suite.verifier.IssueToken(userID, time.Hour)
	require.NoError(suite.T(), err)
	return token
}

func (suite *CheckoutLifecycleTestSuite) TestSuccessfulCheckout() {
	t := suite.T()

	conf, err := suite.orchestrator.PlaceOrder(context.Background(), suite.issueToken("user-1"), "idem-1")
	require.NoError(t, err)
	require.Equal(t, int64(2999), conf.AmountMinor)
	require.True(t, conf.CartCleared)

	// Заказ читается из хранилища вместе с позициями.
	order, err := suite.orders.Get(context.Background(), conf.OrderID)
	require.NoError(t, err)
	require.Equal(t, "user-1", order.UserID)
	require.Len(t, order.Lines, 2)

	// Корзина очищена.
	snapshot, err := suite.cart.FetchCart(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, snapshot.IsEmpty())

	// Timeline зафиксировал терминальные стадии.
	events, err := suite.timeline.List(conf.OrderID)
	require.NoError(t, err)
	stages := make(map[string]bool, len(events))
	for _, event := range events {
		stages[event.Stage] = true
	}
	require.True(t, stages["persisted"])
	require.True(t, stages["cart_cleared"])
}

func (suite *CheckoutLifecycleTestSuite) TestDeferredCartClearRecoveredByWorker() {
	t := suite.T()

	suite.cart.ClearErr = domain.ErrCartUnavailable

	conf, err := suite.orchestrator.PlaceOrder(context.Background(), suite.issueToken("user-1"), "idem-1")
	require.NoError(t, err, "persisted order must not be rolled back because of cart clear")
	require.False(t, conf.CartCleared)

	stats, err := suite.reconcile.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.PendingCount)

	// Cart store восстановился: воркер дочищает корзину.
	suite.cart.ClearErr = nil
	worker := reconcile.NewWorker(suite.reconcile, suite.cart, reconcile.WithRetryBaseDelay(0))
	worker.ProcessOnce(context.Background())

	stats, err = suite.reconcile.Stats()
	require.NoError(t, err)
	require.Equal(t, 0, stats.PendingCount)

	snapshot, err := suite.cart.FetchCart(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, snapshot.IsEmpty())
}

func (suite *CheckoutLifecycleTestSuite) TestDuplicateIdempotencyKeyRejectedByStorage() {
	t := suite.T()

	_, err := suite.orchestrator.PlaceOrder(context.Background(), suite.issueToken("user-1"), "idem-dup")
	require.NoError(t, err)

	// Корзина снова наполняется, но ключ уже занят: storage-уровневый
	// барьер держит ровно один заказ на (user, key).
	suite.cart.SetCart("user-1", domain.CartSnapshot{{ProductID: "prod-a", Qty: 1}})

	_, err = suite.orchestrator.PlaceOrder(context.Background(), suite.issueToken("user-1"), "idem-dup")
	require.ErrorIs(t, err, domain.ErrOrderExists)

	orders, err := suite.orders.ListByUser(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func (suite *CheckoutLifecycleTestSuite) TestPricingFailureLeavesNoTrace() {
	t := suite.T()

	suite.catalog.SetErr("prod-b", domain.ErrProductNotFound)

	_, err := suite.orchestrator.PlaceOrder(context.Background(), suite.issueToken("user-1"), "idem-1")
	require.Error(t, err)

	var pricingErr *domain.PricingError
	require.ErrorAs(t, err, &pricingErr)

	orders, err := suite.orders.ListByUser(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Empty(t, orders)

	// Корзина не тронута.
	snapshot, err := suite.cart.FetchCart(context.Background(), "user-1")
	require.NoError(t, err)
	require.False(t, snapshot.IsEmpty())
}

func TestCheckoutLifecycleSuite(t *testing.T) {
	suite.Run(t, new(CheckoutLifecycleTestSuite))
}

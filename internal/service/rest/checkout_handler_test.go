package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checkout/internal/collaborator/cart"
	"github.com/vladislavdragonenkov/checkout/internal/collaborator/catalog"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/auth"
	"github.com/vladislavdragonenkov/checkout/internal/service/checkout"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

type restFixture struct {
	verifier *auth.Verifier
	cart     *cart.MockService
	catalog  *catalog.MockService
	orders   domain.OrderRepository
	server   http.Handler
}

func newRESTFixture(t *testing.T) *restFixture {
	t.Helper()

	verifier, err := auth.NewVerifier([]byte("test-secret"))
	require.NoError(t, err)

	cartSvc := cart.NewMockService()
	cartSvc.SetCart("user-1", domain.CartSnapshot{
		{ProductID: "prod-a", Qty: 2},
		{ProductID: "prod-b", Qty: 1},
	})

	catalogSvc := catalog.NewMockService()
	catalogSvc.SetPrice("prod-a", 1250)
	catalogSvc.SetPrice("prod-b", 499)

	orders := memory.NewOrderRepository()
	reconcileRepo := memory.NewReconcileRepository()
	timeline := memory.NewTimelineRepository()
	idemRepo := memory.NewIdempotencyRepository()

	logger := log.New().WithField("test", "rest")
	orchestrator := checkout.NewOrchestratorWithoutMetrics(
		verifier, cartSvc, catalogSvc, orders, reconcileRepo, timeline, logger,
	)

	checkoutHandler := NewCheckoutHandler(orchestrator, verifier, idemRepo, logger)
	ordersHandler := NewOrdersHandler(orders, timeline, verifier, logger)

	return &restFixture{
		verifier: verifier,
		cart:     cartSvc,
		catalog:  catalogSvc,
		orders:   orders,
		server:   NewRouter(checkoutHandler, ordersHandler, nil),
	}
}

func (f *restFixture) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := f.verifier.IssueToken(userID, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *restFixture) placeOrder(t *testing.T, token, idemKey string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestCheckoutEndpoint_Success(t *testing.T) {
	f := newRESTFixture(t)
	token := f.token(t, "user-1")

	rec := f.placeOrder(t, token, "idem-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var conf confirmationDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conf))
	assert.NotEmpty(t, conf.OrderID)
	assert.Equal(t, int64(2999), conf.AmountMinor)
	assert.Equal(t, "USD", conf.Currency)
	assert.True(t, conf.CartCleared)
	assert.Len(t, conf.Lines, 2)
}

func TestCheckoutEndpoint_MissingCredential(t *testing.T) {
	f := newRESTFixture(t)

	rec := f.placeOrder(t, "", "idem-1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutEndpoint_InvalidCredential(t *testing.T) {
	f := newRESTFixture(t)

	rec := f.placeOrder(t, "not-a-jwt", "idem-1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutEndpoint_MissingIdempotencyKey(t *testing.T) {
	f := newRESTFixture(t)
	token := f.token(t, "user-1")

	rec := f.placeOrder(t, token, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing_idempotency_key", body.Error.Code)
}

func TestCheckoutEndpoint_ReplaySameKey(t *testing.T) {
	f := newRESTFixture(t)
	token := f.token(t, "user-1")

	first := f.placeOrder(t, token, "idem-replay")
	require.Equal(t, http.StatusCreated, first.Code)

	// Корзина уже очищена: без кэша повтор ответил бы empty_cart.
	second := f.placeOrder(t, token, "idem-replay")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	orders, err := f.orders.ListByUser(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, orders, 1, "replay must not create a second order")
}

func TestCheckoutEndpoint_KeyReuseByDifferentUser(t *testing.T) {
	f := newRESTFixture(t)
	f.cart.SetCart("user-2", domain.CartSnapshot{{ProductID: "prod-a", Qty: 1}})

	first := f.placeOrder(t, f.token(t, "user-1"), "idem-shared")
	require.Equal(t, http.StatusCreated, first.Code)

	second := f.placeOrder(t, f.token(t, "user-2"), "idem-shared")
	require.Equal(t, http.StatusConflict, second.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, "idempotency_key_reused", body.Error.Code)
}

func TestCheckoutEndpoint_EmptyCart(t *testing.T) {
	f := newRESTFixture(t)
	token := f.token(t, "user-empty")

	rec := f.placeOrder(t, token, "idem-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "empty_cart", body.Error.Code)
}

func TestCheckoutEndpoint_PricingFailure(t *testing.T) {
	f := newRESTFixture(t)
	f.catalog.SetErr("prod-b", domain.ErrProductNotFound)
	token := f.token(t, "user-1")

	rec := f.placeOrder(t, token, "idem-1")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pricing_failed", body.Error.Code)

	// Неудачный исход тоже кэшируется под этим ключом.
	f.catalog.SetErr("prod-b", nil)
	f.catalog.SetPrice("prod-b", 499)
	replay := f.placeOrder(t, token, "idem-1")
	assert.Equal(t, http.StatusUnprocessableEntity, replay.Code)
}

// indeterminateOnceOrchestrator отвечает «исход неизвестен» на первый вызов
// и делегирует настоящему оркестратору начиная со второго.
type indeterminateOnceOrchestrator struct {
	inner checkout.Orchestrator
	calls int
}

func (o *indeterminateOnceOrchestrator) PlaceOrder(ctx context.Context, credential, idempotencyKey string) (domain.Confirmation, error) {
	o.calls++
	if o.calls == 1 {
		return domain.Confirmation{}, domain.ErrCheckoutIndeterminate
	}
	return o.inner.PlaceOrder(ctx, credential, idempotencyKey)
}

func TestCheckoutEndpoint_IndeterminateOutcomeRetriable(t *testing.T) {
	verifier, err := auth.NewVerifier([]byte("test-secret"))
	require.NoError(t, err)

	cartSvc := cart.NewMockService()
	cartSvc.SetCart("user-1", domain.CartSnapshot{{ProductID: "prod-a", Qty: 2}})
	catalogSvc := catalog.NewMockService()
	catalogSvc.SetPrice("prod-a", 1250)

	orders := memory.NewOrderRepository()
	timeline := memory.NewTimelineRepository()
	logger := log.New().WithField("test", "rest")
	flaky := &indeterminateOnceOrchestrator{
		inner: checkout.NewOrchestratorWithoutMetrics(
			verifier, cartSvc, catalogSvc, orders,
			memory.NewReconcileRepository(), timeline, logger,
		),
	}
	server := NewRouter(
		NewCheckoutHandler(flaky, verifier, memory.NewIdempotencyRepository(), logger),
		NewOrdersHandler(orders, timeline, verifier, logger),
		nil,
	)

	token, err := verifier.IssueToken("user-1", time.Hour)
	require.NoError(t, err)
	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "idem-unknown-outcome")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		return rec
	}

	first := post()
	require.Equal(t, http.StatusInternalServerError, first.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &body))
	require.Equal(t, "checkout_indeterminate", body.Error.Code)

	// Ответ обещал повтор с тем же ключом: повтор обязан выполнить checkout
	// заново, а не отдать закэшированную пятисотку.
	second := post()
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Equal(t, 2, flaky.calls, "retry must reach the orchestrator")

	list, err := orders.ListByUser(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1, "retry must produce exactly one order")
}

func TestCheckoutEndpoint_CartUnavailable(t *testing.T) {
	f := newRESTFixture(t)
	f.cart.FetchErr = domain.ErrCartUnavailable
	token := f.token(t, "user-1")

	rec := f.placeOrder(t, token, "idem-1")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cart_unavailable", body.Error.Code)
}

package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *restFixture) get(t *testing.T, token, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestOrdersEndpoint_ListAndGet(t *testing.T) {
	f := newRESTFixture(t)
	token := f.token(t, "user-1")

	placed := f.placeOrder(t, token, "idem-1")
	require.Equal(t, http.StatusCreated, placed.Code)

	var conf confirmationDTO
	require.NoError(t, json.Unmarshal(placed.Body.Bytes(), &conf))

	list := f.get(t, token, "/api/v1/orders")
	require.Equal(t, http.StatusOK, list.Code)

	var orders []orderDTO
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, conf.OrderID, orders[0].ID)
	assert.Equal(t, int64(2999), orders[0].AmountMinor)

	single := f.get(t, token, "/api/v1/orders/"+conf.OrderID)
	require.Equal(t, http.StatusOK, single.Code)

	var order orderDTO
	require.NoError(t, json.Unmarshal(single.Body.Bytes(), &order))
	assert.Equal(t, conf.OrderID, order.ID)
	assert.Len(t, order.Lines, 2)
}

func TestOrdersEndpoint_ForeignOrderHidden(t *testing.T) {
	f := newRESTFixture(t)

	placed := f.placeOrder(t, f.token(t, "user-1"), "idem-1")
	require.Equal(t, http.StatusCreated, placed.Code)

	var conf confirmationDTO
	require.NoError(t, json.Unmarshal(placed.Body.Bytes(), &conf))

	foreign := f.get(t, f.token(t, "user-2"), "/api/v1/orders/"+conf.OrderID)
	assert.Equal(t, http.StatusNotFound, foreign.Code)
}

func TestOrdersEndpoint_Unauthorized(t *testing.T) {
	f := newRESTFixture(t)

	rec := f.get(t, "", "/api/v1/orders")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrdersEndpoint_NotFound(t *testing.T) {
	f := newRESTFixture(t)

	rec := f.get(t, f.token(t, "user-1"), "/api/v1/orders/missing-id")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrdersEndpoint_Timeline(t *testing.T) {
	f := newRESTFixture(t)
	token := f.token(t, "user-1")

	placed := f.placeOrder(t, token, "idem-1")
	require.Equal(t, http.StatusCreated, placed.Code)

	var conf confirmationDTO
	require.NoError(t, json.Unmarshal(placed.Body.Bytes(), &conf))

	rec := f.get(t, token, "/api/v1/orders/"+conf.OrderID+"/timeline")
	require.Equal(t, http.StatusOK, rec.Code)

	var events []timelineEventDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.NotEmpty(t, events)

	stages := make(map[string]bool, len(events))
	for _, event := range events {
		stages[event.Stage] = true
	}
	assert.True(t, stages["persisted"])
	assert.True(t, stages["cart_cleared"])
}

func TestOrdersEndpoint_InvalidLimit(t *testing.T) {
	f := newRESTFixture(t)

	rec := f.get(t, f.token(t, "user-1"), "/api/v1/orders?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

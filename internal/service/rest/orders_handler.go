package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/checkout"
)

const defaultOrderListLimit = 20

// OrdersHandler обслуживает read-эндпоинты заказов.
type OrdersHandler struct {
	orders   domain.OrderRepository
	timeline domain.TimelineRepository
	verifier checkout.CredentialVerifier
	logger   *log.Entry
}

// NewOrdersHandler создаёт HTTP-обработчик чтения заказов.
func NewOrdersHandler(
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	verifier checkout.CredentialVerifier,
	logger *log.Entry,
) *OrdersHandler {
	if logger == nil {
		logger = log.WithField("component", "rest-orders")
	}
	return &OrdersHandler{
		orders:   orders,
		timeline: timeline,
		verifier: verifier,
		logger:   logger,
	}
}

type orderDTO struct {
	ID          string    `json:"id"`
	Currency    string    `json:"currency"`
	AmountMinor int64     `json:"amount_minor"`
	Lines       []lineDTO `json:"lines"`
	CreatedAt   time.Time `json:"created_at"`
}

type timelineEventDTO struct {
	Stage    string    `json:"stage"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toOrderDTO(order domain.Order) orderDTO {
	lines := make([]lineDTO, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, lineDTO{
			ProductID:  line.ProductID,
			Qty:        line.Qty,
			PriceMinor: line.PriceMinor,
		})
	}
	return orderDTO{
		ID:          order.ID,
		Currency:    order.Currency,
		AmountMinor: order.AmountMinor,
		Lines:       lines,
		CreatedAt:   order.CreatedAt,
	}
}

// List обрабатывает GET /api/v1/orders.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	limit := defaultOrderListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	orders, err := h.orders.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("failed to list orders")
		respondError(w, http.StatusInternalServerError, "internal", "failed to list orders")
		return
	}

	dtos := make([]orderDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, toOrderDTO(order))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// Get обрабатывает GET /api/v1/orders/{orderID}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "orderID")
	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order_not_found", "order does not exist")
			return
		}
		h.logger.WithError(err).WithField("order_id", orderID).Error("failed to load order")
		respondError(w, http.StatusInternalServerError, "internal", "failed to load order")
		return
	}

	// Чужой заказ неотличим от несуществующего.
	if order.UserID != userID {
		respondError(w, http.StatusNotFound, "order_not_found", "order does not exist")
		return
	}

	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

// Timeline обрабатывает GET /api/v1/orders/{orderID}/timeline.
func (h *OrdersHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "orderID")
	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil || order.UserID != userID {
		respondError(w, http.StatusNotFound, "order_not_found", "order does not exist")
		return
	}

	events, err := h.timeline.List(orderID)
	if err != nil {
		h.logger.WithError(err).WithField("order_id", orderID).Error("failed to load order timeline")
		respondError(w, http.StatusInternalServerError, "internal", "failed to load order timeline")
		return
	}

	dtos := make([]timelineEventDTO, 0, len(events))
	for _, event := range events {
		dtos = append(dtos, timelineEventDTO{
			Stage:    event.Stage,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (h *OrdersHandler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	credential, ok := bearerCredential(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer credential")
		return "", false
	}

	userID, err := h.verifier.Verify(credential)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid credential")
		return "", false
	}
	return userID, true
}

package rest

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/checkout"
)

// CheckoutHandler обслуживает POST /api/v1/checkout.
type CheckoutHandler struct {
	orchestrator checkout.Orchestrator
	verifier     checkout.CredentialVerifier
	idemRepo     domain.IdempotencyRepository
	logger       *log.Entry
}

// NewCheckoutHandler создаёт HTTP-обработчик checkout.
// idemRepo может быть nil: тогда конверт идемпотентности отключён.
func NewCheckoutHandler(
	orchestrator checkout.Orchestrator,
	verifier checkout.CredentialVerifier,
	idemRepo domain.IdempotencyRepository,
	logger *log.Entry,
) *CheckoutHandler {
	if logger == nil {
		logger = log.WithField("component", "rest-checkout")
	}
	return &CheckoutHandler{
		orchestrator: orchestrator,
		verifier:     verifier,
		idemRepo:     idemRepo,
		logger:       logger,
	}
}

// confirmationDTO — тело успешного ответа checkout.
type confirmationDTO struct {
	OrderID     string    `json:"order_id"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	CartCleared bool      `json:"cart_cleared"`
	Lines       []lineDTO `json:"lines"`
}

type lineDTO struct {
	ProductID  string `json:"product_id"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

func toConfirmationDTO(conf domain.Confirmation) confirmationDTO {
	lines := make([]lineDTO, 0, len(conf.Lines))
	for _, line := range conf.Lines {
		lines = append(lines, lineDTO{
			ProductID:  line.ProductID,
			Qty:        line.Qty,
			PriceMinor: line.PriceMinor,
		})
	}
	return confirmationDTO{
		OrderID:     conf.OrderID,
		AmountMinor: conf.AmountMinor,
		Currency:    conf.Currency,
		CartCleared: conf.CartCleared,
		Lines:       lines,
	}
}

// PlaceOrder обрабатывает POST /api/v1/checkout.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	credential, ok := bearerCredential(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer credential")
		return
	}

	// Ключ считается по userID, поэтому credential проверяется до конверта.
	// Оркестратор проверит его повторно — проверка детерминированная и дешёвая.
	userID, err := h.verifier.Verify(credential)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid credential")
		return
	}

	idemKey := r.Header.Get(idempotencyKeyHeader)
	requestHash := buildRequestHash(r.Method, r.URL.Path, userID)

	resp, err := withIdempotency(h.idemRepo, h.logger, idemKey, requestHash, func() cachedResponse {
		conf, placeErr := h.orchestrator.PlaceOrder(r.Context(), credential, idemKey)
		if placeErr != nil {
			status, code, message := classifyCheckoutError(placeErr)
			return cachedResponse{
				Status: status,
				Body:   mustMarshal(h.logger, errorBody{Error: errorInfo{Code: code, Message: message}}),
				// Ответ «исход неизвестен» обещает клиенту повтор с тем же
				// ключом, значит кэшировать его нельзя.
				Transient: errors.Is(placeErr, domain.ErrCheckoutIndeterminate),
			}
		}
		return cachedResponse{
			Status: http.StatusCreated,
			Body:   mustMarshal(h.logger, toConfirmationDTO(conf)),
		}
	})
	if err != nil {
		writeIdempotencyError(w, h.logger, err)
		return
	}

	respondRawJSON(w, resp.Status, resp.Body)
}

func bearerCredential(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	credential := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return credential, credential != ""
}

// classifyCheckoutError переводит доменную ошибку в HTTP-статус и код.
func classifyCheckoutError(err error) (int, string, string) {
	var pricingErr *domain.PricingError

	switch {
	case errors.Is(err, domain.ErrMissingCredential), errors.Is(err, domain.ErrInvalidCredential):
		return http.StatusUnauthorized, "unauthorized", "invalid credential"
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest, "empty_cart", "cart is empty, nothing to checkout"
	case errors.Is(err, domain.ErrCartUnavailable):
		return http.StatusServiceUnavailable, "cart_unavailable", "cart store is temporarily unavailable"
	case errors.As(err, &pricingErr):
		if errors.Is(err, domain.ErrCatalogUnavailable) {
			return http.StatusServiceUnavailable, "catalog_unavailable", "catalog is temporarily unavailable"
		}
		return http.StatusUnprocessableEntity, "pricing_failed", "failed to price product " + pricingErr.ProductID
	case errors.Is(err, domain.ErrCheckoutIndeterminate):
		return http.StatusInternalServerError, "checkout_indeterminate", "checkout outcome is unknown, retry with the same idempotency key"
	default:
		return http.StatusInternalServerError, "internal", "checkout failed"
	}
}

package rest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour
)

// cachedResponse — то, что сохраняется в idempotency-кэше: статус и тело ответа.
// Transient помечает ответ, который кэшировать нельзя: исход операции
// неизвестен, и повтор с тем же ключом должен выполниться заново.
type cachedResponse struct {
	Status    int
	Body      []byte
	Transient bool
}

// buildRequestHash связывает idempotency-ключ с конкретным запросом
// конкретного пользователя: переиспользование ключа с другим запросом
// должно быть отвергнуто, а не тихо отвечено чужим кэшем.
func buildRequestHash(method, path, userID string) string {
	sum := sha256.Sum256([]byte(method + "\x00" + path + "\x00" + userID))
	return hex.EncodeToString(sum[:])
}

// withIdempotency оборачивает обработку запроса idempotency-конвертом:
// первый запрос с ключом выполняется, повтор с тем же ключом получает
// кэшированный ответ без повторного выполнения.
func withIdempotency(
	repo domain.IdempotencyRepository,
	logger *log.Entry,
	key, requestHash string,
	handler func() cachedResponse,
) (cachedResponse, error) {
	if repo == nil {
		return handler(), nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return cachedResponse{}, domain.ErrIdempotencyKeyRequired
	}

	record, err := repo.CreateProcessing(key, requestHash, time.Now().UTC().Add(idempotencyTTL))
	if err != nil {
		return replayCached(logger, err, record)
	}

	resp := handler()

	// Неопределённый исход не фиксируется: processing-запись удаляется,
	// чтобы повтор с тем же ключом выполнил операцию заново. От двойной
	// записи заказа защищает уникальный индекс (user_id, idempotency_key).
	if resp.Transient {
		if delErr := repo.Delete(key); delErr != nil {
			logger.WithError(delErr).WithField("idempotency_key", key).Warn("failed to release idempotency key")
		}
		return resp, nil
	}

	var markErr error
	if resp.Status >= 200 && resp.Status < 300 {
		markErr = repo.MarkDone(key, resp.Body, resp.Status)
	} else {
		markErr = repo.MarkFailed(key, resp.Body, resp.Status)
	}
	if markErr != nil {
		logger.WithError(markErr).WithField("idempotency_key", key).Warn("failed to cache idempotent response")
	}

	return resp, nil
}

var errIdempotencyProcessing = errors.New("request with the same idempotency key is already processing")

func replayCached(logger *log.Entry, createErr error, record domain.IdempotencyRecord) (cachedResponse, error) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		return cachedResponse{}, domain.ErrIdempotencyHashMismatch
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			if len(record.ResponseBody) == 0 && record.HTTPStatus == 0 {
				return cachedResponse{}, fmt.Errorf("idempotency cache is empty for key %s", record.Key)
			}
			return cachedResponse{Status: record.HTTPStatus, Body: record.ResponseBody}, nil
		case domain.IdempotencyStatusProcessing:
			return cachedResponse{}, errIdempotencyProcessing
		default:
			return cachedResponse{}, fmt.Errorf("unknown idempotency record status %q", record.Status)
		}
	default:
		logger.WithError(createErr).Warn("failed to create idempotency record")
		return cachedResponse{}, createErr
	}
}

// mustMarshal сериализует тело ответа для кэша; на практике payload всегда
// сериализуем, поэтому ошибка превращается в пустое тело с логом.
func mustMarshal(logger *log.Entry, payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.WithError(err).Warn("failed to marshal response payload")
		return nil
	}
	return data
}

func writeIdempotencyError(w http.ResponseWriter, logger *log.Entry, err error) {
	switch {
	case errors.Is(err, domain.ErrIdempotencyKeyRequired):
		respondError(w, http.StatusBadRequest, "missing_idempotency_key", "Idempotency-Key header is required")
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		respondError(w, http.StatusConflict, "idempotency_key_reused", "idempotency key is already used with a different request")
	case errors.Is(err, errIdempotencyProcessing):
		respondError(w, http.StatusConflict, "request_in_flight", "request with the same idempotency key is already processing")
	default:
		logger.WithError(err).Error("idempotency envelope failed")
		respondError(w, http.StatusInternalServerError, "internal", "failed to process idempotent request")
	}
}

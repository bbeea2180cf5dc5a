package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const defaultIdempotencyTTL = 24 * time.Hour

// idempotencyStore держит записи idempotency-конверта в памяти.
// Все записи отдаются наружу копиями, чтобы вызывающий код не мог
// изменить состояние хранилища через срез ResponseBody.
type idempotencyStore struct {
	mu      sync.RWMutex
	records map[string]domain.IdempotencyRecord
}

// NewIdempotencyRepository создаёт in-memory реализацию IdempotencyRepository.
func NewIdempotencyRepository() domain.IdempotencyRepository {
	return &idempotencyStore{records: make(map[string]domain.IdempotencyRecord)}
}

// CreateProcessing занимает ключ в статусе processing. Если ключ уже занят,
// возвращается существующая запись вместе с ErrIdempotencyKeyAlreadyExists
// либо ErrIdempotencyHashMismatch, когда хэш запроса не совпал.
func (s *idempotencyStore) CreateProcessing(key, requestHash string, ttlAt time.Time) (domain.IdempotencyRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyRequired
	}
	requestHash = strings.TrimSpace(requestHash)
	if requestHash == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyRequestHashRequired
	}

	now := time.Now().UTC()
	if ttlAt.IsZero() {
		ttlAt = now.Add(defaultIdempotencyTTL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if occupied, ok := s.records[key]; ok {
		if occupied.RequestHash != requestHash {
			return copyRecord(occupied), domain.ErrIdempotencyHashMismatch
		}
		return copyRecord(occupied), domain.ErrIdempotencyKeyAlreadyExists
	}

	fresh := domain.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      domain.IdempotencyStatusProcessing,
		TTLAt:       ttlAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.records[key] = fresh

	return copyRecord(fresh), nil
}

func (s *idempotencyStore) Get(key string) (domain.IdempotencyRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key]
	if !ok {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
	}
	return copyRecord(record), nil
}

func (s *idempotencyStore) MarkDone(key string, responseBody []byte, httpStatus int) error {
	return s.finalize(key, domain.IdempotencyStatusDone, responseBody, httpStatus)
}

func (s *idempotencyStore) MarkFailed(key string, responseBody []byte, httpStatus int) error {
	return s.finalize(key, domain.IdempotencyStatusFailed, responseBody, httpStatus)
}

// Delete освобождает ключ без фиксации исхода. Отсутствие ключа — ошибка:
// она сигнализирует о рассинхронизации конверта и хранилища.
func (s *idempotencyStore) Delete(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrIdempotencyKeyRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		return domain.ErrIdempotencyKeyNotFound
	}
	delete(s.records, key)
	return nil
}

// DeleteExpired удаляет записи с истёкшим TTL, не больше limit за вызов (если limit > 0).
func (s *idempotencyStore) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for key, record := range s.records {
		if limit > 0 && removed >= limit {
			break
		}
		if record.TTLAt.After(before) {
			continue
		}
		delete(s.records, key)
		removed++
	}
	return removed, nil
}

func (s *idempotencyStore) finalize(key string, status domain.IdempotencyStatus, responseBody []byte, httpStatus int) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrIdempotencyKeyRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return domain.ErrIdempotencyKeyNotFound
	}

	record.Status = status
	record.ResponseBody = append([]byte(nil), responseBody...)
	record.HTTPStatus = httpStatus
	record.UpdatedAt = time.Now().UTC()
	s.records[key] = record
	return nil
}

func copyRecord(src domain.IdempotencyRecord) domain.IdempotencyRecord {
	dst := src
	if src.ResponseBody != nil {
		dst.ResponseBody = append([]byte(nil), src.ResponseBody...)
	}
	return dst
}

var _ domain.IdempotencyRepository = (*idempotencyStore)(nil)

package checkout

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const defaultRetryDelay = 100 * time.Millisecond

// withRetry выполняет обращение к внешнему хранилищу с одним повтором.
// Повторяем только временную недоступность collaborator'а: ошибки вызывающего
// и бизнес-ответы (товар не найден, пустая корзина) повтор не лечит.
func withRetry[T any](
	ctx context.Context,
	logger *log.Entry,
	op string,
	delay time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	result, err := fn(ctx)
	if err == nil || !domain.IsCollaboratorUnavailable(err) {
		return result, err
	}

	logger.WithError(err).WithField("operation", op).Warn("collaborator call failed, retrying once")

	if delay > 0 {
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return fn(ctx)
}

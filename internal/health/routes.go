package health

import (
	"context"
	"net/http"
	"time"
)

// Pinger объединяет зависимости, умеющие проверять своё подключение
// (postgres Store, redis-клиент корзины).
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingChecker оборачивает Pinger в Checker с таймаутом на проверку.
func NewPingChecker(name string, pinger Pinger, timeout time.Duration) *SimpleChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return NewSimpleChecker(name, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return pinger.Ping(ctx)
	})
}

// Routes возвращает http.Handler с эндпоинтами проб:
// /healthz — полный отчёт, /readyz — готовность, /livez — liveness.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", h)
	mux.HandleFunc("/readyz", h.ReadinessHandler)
	mux.HandleFunc("/livez", LivenessHandler)
	return mux
}

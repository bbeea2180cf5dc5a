package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего bearer credential во входящем запросе.
	ErrMissingCredential = errors.New("credential is required")
	// Ошибка невалидного credential: подпись, срок действия или формат.
	ErrInvalidCredential = errors.New("credential is invalid or expired")
	// Ошибка оформления заказа по пустой корзине.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCartUnavailable — cart store недоступен; не путать с пустой корзиной.
	ErrCartUnavailable = errors.New("cart store unavailable")
	// ErrCatalogUnavailable — временная недоступность каталога, допустим повтор.
	ErrCatalogUnavailable = errors.New("catalog store unavailable")
	// ErrProductNotFound — товар из корзины отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found in catalog")
	// ErrCheckoutIndeterminate — отмена запроса совпала с записью заказа;
	// исход неизвестен, клиенту нужно проверить историю заказов.
	ErrCheckoutIndeterminate = errors.New("checkout outcome is indeterminate, check order history")

	// Ошибка отсутствующего идентификатора пользователя в заказе.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrLineQtyInvalid = errors.New("line qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrLinePriceInvalid = errors.New("line price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match lines sum")
	// ErrAmountOverflow — сумма заказа не помещается в int64 минимальных единиц.
	ErrAmountOverflow = errors.New("order amount overflows int64")
	// Ошибка отсутствующего ProductID в позиции корзины.
	ErrProductIDRequired = errors.New("product_id is required")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists сигнализирует о попытке повторной вставки заказа
	// с тем же ID или idempotency-ключом.
	ErrOrderExists = errors.New("order already exists")

	// Ошибка отсутствующего idempotency-ключа.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// Ошибка отсутствующего хэша запроса при создании idempotency-записи.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — запись с таким ключом уже создана.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим payload.
	ErrIdempotencyHashMismatch = errors.New("idempotency key is used with different request")
	// ErrIdempotencyKeyNotFound — записи с таким ключом нет.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

	// ErrReconcileTaskNotFound — задача реконсиляции не найдена в очереди.
	ErrReconcileTaskNotFound = errors.New("reconcile task not found")
)

// PricingError описывает провал резолва цены конкретного товара.
// Один неоценённый товар валит весь checkout: частичный заказ не собирается.
type PricingError struct {
	ProductID string
	Err       error
}

func (e *PricingError) Error() string {
	return fmt.Sprintf("pricing failed for product %s: %v", e.ProductID, e.Err)
}

func (e *PricingError) Unwrap() error {
	return e.Err
}

// IsCollaboratorUnavailable проверяет, относится ли ошибка к временной
// недоступности внешнего хранилища (cart или catalog).
func IsCollaboratorUnavailable(err error) bool {
	return errors.Is(err, ErrCartUnavailable) || errors.Is(err, ErrCatalogUnavailable)
}

package domain

import (
	"math"
	"time"
)

// OrderLine представляет одну позицию заказа с ценой, зафиксированной
// в момент checkout. Цена никогда не пересчитывается по каталогу задним числом.
type OrderLine struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — внешний идентификатор товара.
	ProductID string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — цена за единицу в минимальных денежных единицах (например, центы).
	PriceMinor int64
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// Order агрегирует результат успешного checkout. Заказ создаётся ровно один
// раз и после записи неизменяем.
type Order struct {
	ID             string
	UserID         string
	Currency       string
	AmountMinor    int64
	Lines          []OrderLine
	IdempotencyKey string
	CreatedAt      time.Time
}

// ComputeTotalMinor — чистая функция подсчёта суммы заказа: Σ(qty * price)
// в минимальных единицах, без плавающей точки. Для пустого списка возвращает 0;
// правило про пустую корзину живёт уровнем выше, в оркестраторе.
// Переполнение int64 — ErrAmountOverflow: молча обрезанная сумма хуже отказа.
func ComputeTotalMinor(lines []OrderLine) (int64, error) {
	var total int64
	for _, line := range lines {
		qty := int64(line.Qty)
		if qty < 0 || line.PriceMinor < 0 {
			// Отрицательные значения ловит ValidateInvariants; здесь они
			// лишь исключаются из арифметики переполнения.
			continue
		}

		lineTotal := qty * line.PriceMinor
		if line.PriceMinor != 0 && lineTotal/line.PriceMinor != qty {
			return 0, ErrAmountOverflow
		}
		if total > math.MaxInt64-lineTotal {
			return 0, ErrAmountOverflow
		}
		total += lineTotal
	}
	return total, nil
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.PriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	total, err := ComputeTotalMinor(o.Lines)
	switch {
	case err != nil:
		errs = append(errs, err)
	case total != o.AmountMinor:
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

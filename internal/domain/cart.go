package domain

// CartItem представляет одну позицию корзины, как её отдаёт cart store.
type CartItem struct {
	// ProductID — внешний идентификатор товара в каталоге.
	ProductID string
	// Qty — количество единиц товара (> 0).
	Qty int32
}

// CartSnapshot — упорядоченный снимок корзины пользователя на момент checkout.
// Снимок может содержать дубликаты ProductID: cart store их не запрещает.
type CartSnapshot []CartItem

// IsEmpty сообщает, что в корзине нет ни одной позиции.
func (s CartSnapshot) IsEmpty() bool {
	return len(s) == 0
}

// Merged сливает дубликаты ProductID, суммируя количества.
// Порядок первого появления товара в снимке сохраняется.
func (s CartSnapshot) Merged() CartSnapshot {
	if len(s) <= 1 {
		return s
	}

	index := make(map[string]int, len(s))
	merged := make(CartSnapshot, 0, len(s))
	for _, item := range s {
		if pos, ok := index[item.ProductID]; ok {
			merged[pos].Qty += item.Qty
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}

	return merged
}

// Validate проверяет, что каждая позиция снимка пригодна для оформления заказа.
func (s CartSnapshot) Validate() []error {
	var errs []error
	for _, item := range s {
		if item.ProductID == "" {
			errs = append(errs, ErrProductIDRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
	}
	return errs
}

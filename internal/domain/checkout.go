package domain

// CheckoutStage описывает состояние одной попытки checkout. Попытка живёт
// только в памяти на время запроса; терминальное состояние определяет
// итоговый HTTP-ответ.
type CheckoutStage string

const (
	// CheckoutStageStarted — попытка принята в обработку.
	CheckoutStageStarted CheckoutStage = "started"
	// CheckoutStageAuthenticated — credential проверен, пользователь известен.
	CheckoutStageAuthenticated CheckoutStage = "authenticated"
	// CheckoutStageCartFetched — снимок корзины получен.
	CheckoutStageCartFetched CheckoutStage = "cart_fetched"
	// CheckoutStagePriced — все позиции оценены по каталогу.
	CheckoutStagePriced CheckoutStage = "priced"
	// CheckoutStagePersisted — заказ атомарно записан в хранилище.
	CheckoutStagePersisted CheckoutStage = "persisted"
	// CheckoutStageCartCleared — корзина очищена; полный успех.
	CheckoutStageCartCleared CheckoutStage = "cart_cleared"
	// CheckoutStageFailed — попытка завершилась ошибкой до записи заказа.
	CheckoutStageFailed CheckoutStage = "failed"
)

// Confirmation — результат успешного checkout, возвращаемый вызывающему.
type Confirmation struct {
	OrderID     string
	AmountMinor int64
	Currency    string
	Lines       []OrderLine
	// CartCleared=false означает, что заказ записан, но очистка корзины
	// не подтвердилась и ушла в очередь реконсиляции.
	CartCleared bool
}

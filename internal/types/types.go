package types

type OrderStatus string

type StrategyType string

type OrderSide string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

const (
	StrategyVolume    StrategyType = "VOLUME"
	StrategySpread    StrategyType = "SPREAD"
	StrategyBulkOrder StrategyType = "BULKORDER"
)

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Strategies lists the known strategy types in report sheet order.
var Strategies = []StrategyType{StrategyVolume, StrategyBulkOrder, StrategySpread}

func (s StrategyType) Valid() bool {
	switch s {
	case StrategyVolume, StrategySpread, StrategyBulkOrder:
		return true
	}
	return false
}

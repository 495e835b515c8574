package market

import "example.com/doubleauction/model"

// Event 调度器投递给市场的事件
type Event interface {
	eventName() string
}

// OrderPlaced 交易者提交报价
type OrderPlaced struct {
	Order *model.Order
}

// TransactionExecuted 一对已匹配报价成交
type TransactionExecuted struct {
	Bid      *model.Order
	Ask      *model.Order
	Price    float64
	Quantity int
}

// RoundClosed 交易回合结束
type RoundClosed struct{}

// MarketOpen 新交易日开市
type MarketOpen struct{}

// SimulationStarting 模拟开始
type SimulationStarting struct{}

func (OrderPlaced) eventName() string         { return "order placed" }
func (TransactionExecuted) eventName() string { return "transaction executed" }
func (RoundClosed) eventName() string         { return "round closed" }
func (MarketOpen) eventName() string          { return "market open" }
func (SimulationStarting) eventName() string  { return "simulation starting" }

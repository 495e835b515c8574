// Package equilibrium 通过直接显示（所有交易者按真实估值报价）计算理论均衡价格区间和成交量
package equilibrium

import (
	"fmt"

	"go.uber.org/zap"

	"example.com/doubleauction/model"
	"example.com/doubleauction/report"
)

// Trader 参与均衡计算的交易者
type Trader interface {
	ID() string
	Valuation() float64
	Side() model.Side
	Quantity() int // 当前确定的交易数量
	Active() bool
}

// Population 当前交易者集合
type Population interface {
	Traders() []Trader
}

// Result 一次均衡计算的结果
type Result struct {
	Exists   bool
	MinPrice float64
	MaxPrice float64
	Quantity int
	Surplus  float64 // 均衡时的理论总剩余
	Matches  []model.Match
}

// MidPrice 均衡价格区间中点
func (r Result) MidPrice() float64 {
	return (r.MinPrice + r.MaxPrice) / 2
}

// Calculator 均衡计算器，每次计算使用独立的订单簿
type Calculator struct {
	population Population
	logger     *zap.Logger
	sink       report.Sink
	result     Result
}

// Option 计算器选项
type Option func(*Calculator)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Calculator) { c.logger = logger }
}

// WithSink 设置指标接收器
func WithSink(sink report.Sink) Option {
	return func(c *Calculator) { c.sink = sink }
}

// NewCalculator 创建均衡计算器
func NewCalculator(population Population, opts ...Option) *Calculator {
	c := &Calculator{population: population}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.sink == nil {
		c.sink = report.Nop{}
	}
	return c
}

// Recalculate 按当前交易者集合重新计算并保存结果
func (c *Calculator) Recalculate() error {
	var traders []Trader
	if c.population != nil {
		traders = c.population.Traders()
	}
	result, err := c.Calculate(traders)
	if err != nil {
		c.result = Result{}
		return err
	}
	c.result = result
	c.publish(result)
	return nil
}

// Result 最近一次计算的结果，计算失败后为空
func (c *Calculator) Result() Result {
	return c.result
}

// Exists 是否存在均衡
func (c *Calculator) Exists() bool { return c.result.Exists }

// MinPrice 均衡价格下限
func (c *Calculator) MinPrice() float64 { return c.result.MinPrice }

// MaxPrice 均衡价格上限
func (c *Calculator) MaxPrice() float64 { return c.result.MaxPrice }

// Quantity 均衡成交量
func (c *Calculator) Quantity() int { return c.result.Quantity }

// MidEquilibriumPrice 均衡价格区间中点
func (c *Calculator) MidEquilibriumPrice() float64 {
	return c.result.MidPrice()
}

// Calculate 为每个活跃交易者构造真实报价，插入新订单簿后求均衡
func (c *Calculator) Calculate(traders []Trader) (Result, error) {
	book := model.NewOrderBook()

	for _, tr := range traders {
		if !tr.Active() || tr.Quantity() <= 0 {
			continue
		}
		order := model.NewOrder(tr.ID(), tr.Side(), tr.Valuation(), tr.Quantity())
		if err := book.Insert(order); err != nil {
			return Result{}, fmt.Errorf("truthful order for trader %s: %w", tr.ID(), err)
		}
	}

	if book.Size(model.MatchedBids) == 0 || book.Size(model.MatchedAsks) == 0 {
		c.logger.Debug("no equilibrium", zap.Int("orders", book.Len()))
		return Result{}, nil
	}

	result := Result{
		Exists:   true,
		MinPrice: max(book.HighestMatchedAsk(), book.HighestUnmatchedBid()),
		MaxPrice: min(book.LowestUnmatchedAsk(), book.LowestMatchedBid()),
	}
	if err := c.checkRange(result.MinPrice, result.MaxPrice); err != nil {
		return Result{}, err
	}

	result.Matches = book.MatchOrders()
	for _, m := range result.Matches {
		result.Quantity += m.Quantity
		result.Surplus += (m.Bid.Price - m.Ask.Price) * float64(m.Quantity)
	}

	c.logger.Debug("equilibrium",
		zap.Float64("min", result.MinPrice),
		zap.Float64("max", result.MaxPrice),
		zap.Int("quantity", result.Quantity))
	return result, nil
}

// checkRange 正确的订单簿总是给出 min <= max
func (c *Calculator) checkRange(minPrice, maxPrice float64) error {
	if minPrice <= maxPrice {
		return nil
	}
	c.logger.Error("equilibrium price range inverted",
		zap.Float64("min", minPrice), zap.Float64("max", maxPrice))
	return fmt.Errorf("%w: equilibrium min price %g above max price %g",
		model.ErrInvariantViolation, minPrice, maxPrice)
}

func (c *Calculator) publish(r Result) {
	exists := 0.0
	if r.Exists {
		exists = 1
	}
	c.sink.Publish("equilibrium.exists", exists)
	c.sink.Publish("equilibrium.quantity", float64(r.Quantity))
	c.sink.Publish("equilibrium.surplus", r.Surplus)
	if r.Exists {
		c.sink.Publish("equilibrium.price.min", r.MinPrice)
		c.sink.Publish("equilibrium.price.max", r.MaxPrice)
		c.sink.Publish("equilibrium.price.mid", r.MidPrice())
	}
}

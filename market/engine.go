// Package market 把调度器事件同步地分发给订单簿、历史统计和均衡计算器
package market

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/doubleauction/equilibrium"
	"example.com/doubleauction/model"
	"example.com/doubleauction/report"
	"example.com/doubleauction/stats"
)

// ErrShoutNotVisible 市场不公开该报价的成交状态
var ErrShoutNotVisible = errors.New("shout not visible")

// Engine 市场引擎，逐个处理事件，任意两个事件不会重叠
type Engine struct {
	book        *model.OrderBook
	history     *stats.History
	equilibrium *equilibrium.Calculator
	sink        report.Sink
	logger      *zap.Logger

	revealShouts    bool
	checkInvariants bool

	accepted map[uuid.UUID]struct{} // 当天已成交的报价

	Day         int
	Round       int
	OrderCount  int64 // 总订单数
	TradeCount  int64 // 总成交数
	roundOrders int
	roundVolume int
}

// Option 引擎选项
type Option func(*Engine)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithSink 设置指标接收器
func WithSink(sink report.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithBook 使用指定的订单簿
func WithBook(book *model.OrderBook) Option {
	return func(e *Engine) { e.book = book }
}

// WithEquilibrium 开市时重新计算均衡
func WithEquilibrium(calc *equilibrium.Calculator) Option {
	return func(e *Engine) { e.equilibrium = calc }
}

// WithRevealShouts 是否向其他交易者公开报价的成交状态
func WithRevealShouts(reveal bool) Option {
	return func(e *Engine) { e.revealShouts = reveal }
}

// WithInvariantChecks 每个事件后检查订单簿不变量
func WithInvariantChecks(check bool) Option {
	return func(e *Engine) { e.checkInvariants = check }
}

// NewEngine 创建市场引擎
func NewEngine(history *stats.History, opts ...Option) *Engine {
	e := &Engine{
		history:      history,
		revealShouts: true,
		accepted:     make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.book == nil {
		e.book = model.NewOrderBook()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.sink == nil {
		e.sink = report.Nop{}
	}
	return e
}

// Book 实时订单簿
func (e *Engine) Book() *model.OrderBook { return e.book }

// History 历史报价统计
func (e *Engine) History() *stats.History { return e.history }

// Equilibrium 均衡计算器，未配置时为nil
func (e *Engine) Equilibrium() *equilibrium.Calculator { return e.equilibrium }

// Quote 当前报价
func (e *Engine) Quote() model.Quote { return e.book.Quote() }

// Run 在当前goroutine中依次处理事件，直到通道关闭、ctx取消或处理出错
func (e *Engine) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := e.Handle(ev); err != nil {
				return err
			}
		}
	}
}

// Handle 处理单个事件
func (e *Engine) Handle(ev Event) error {
	if ev == nil {
		return errors.New("nil event")
	}

	var err error
	switch ev := ev.(type) {
	case OrderPlaced:
		err = e.orderPlaced(ev)
	case TransactionExecuted:
		err = e.transactionExecuted(ev)
	case RoundClosed:
		e.roundClosed()
	case MarketOpen:
		err = e.marketOpen()
	case SimulationStarting:
		e.simulationStarting()
	default:
		err = fmt.Errorf("unknown event %T", ev)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", ev.eventName(), err)
	}

	if e.checkInvariants {
		if err := e.book.CheckInvariants(); err != nil {
			e.logger.Error("order book invariant violated", zap.String("event", ev.eventName()), zap.Error(err))
			return err
		}
	}
	return nil
}

func (e *Engine) orderPlaced(ev OrderPlaced) error {
	if err := e.book.Insert(ev.Order); err != nil {
		return err
	}
	if e.history != nil {
		e.history.RecordPlaced(ev.Order)
	}
	e.OrderCount++
	e.roundOrders++

	e.logger.Debug("order placed",
		zap.Stringer("order", ev.Order),
		zap.Stringer("quote", e.book.Quote()))
	return nil
}

func (e *Engine) transactionExecuted(ev TransactionExecuted) error {
	if ev.Bid == nil || ev.Ask == nil {
		return fmt.Errorf("%w: transaction without both sides", model.ErrInvalidOrder)
	}
	match := model.Match{Bid: ev.Bid, Ask: ev.Ask, Quantity: ev.Quantity}
	if err := e.book.Settle(match); err != nil {
		return err
	}
	if e.history != nil {
		e.history.RecordAccepted(ev.Bid, ev.Ask)
	}
	e.accepted[ev.Bid.ID] = struct{}{}
	e.accepted[ev.Ask.ID] = struct{}{}
	e.TradeCount++
	e.roundVolume += ev.Quantity

	e.sink.Publish("market.transaction.price", ev.Price)
	if e.equilibrium != nil && e.equilibrium.Exists() {
		e.sink.Publish("market.transaction.deviation", math.Abs(ev.Price-e.equilibrium.MidEquilibriumPrice()))
	}
	e.logger.Debug("transaction executed",
		zap.Stringer("bid", ev.Bid.ID),
		zap.Stringer("ask", ev.Ask.ID),
		zap.Float64("price", ev.Price),
		zap.Int("quantity", ev.Quantity))
	return nil
}

func (e *Engine) roundClosed() {
	e.sink.Publish("market.round.orders", float64(e.roundOrders))
	e.sink.Publish("market.round.volume", float64(e.roundVolume))
	e.logger.Info("round closed",
		zap.Int("day", e.Day),
		zap.Int("round", e.Round),
		zap.Int("orders", e.roundOrders),
		zap.Int("volume", e.roundVolume))

	e.book.Reset()
	if e.history != nil {
		e.history.AdvanceWindow()
	}
	e.Round++
	e.roundOrders = 0
	e.roundVolume = 0
}

func (e *Engine) marketOpen() error {
	e.book.Reset()
	clear(e.accepted)
	e.Day++
	e.Round = 0
	e.roundOrders = 0
	e.roundVolume = 0

	if e.equilibrium != nil {
		if err := e.equilibrium.Recalculate(); err != nil {
			e.logger.Error("equilibrium calculation failed", zap.Error(err))
			return err
		}
		r := e.equilibrium.Result()
		e.logger.Info("market open",
			zap.Int("day", e.Day),
			zap.Bool("equilibrium", r.Exists),
			zap.Float64("min_price", r.MinPrice),
			zap.Float64("max_price", r.MaxPrice),
			zap.Int("quantity", r.Quantity))
		return nil
	}
	e.logger.Info("market open", zap.Int("day", e.Day))
	return nil
}

func (e *Engine) simulationStarting() {
	e.book.Reset()
	if e.history != nil {
		e.history.Reset()
	}
	clear(e.accepted)
	e.Day, e.Round = 0, 0
	e.OrderCount, e.TradeCount = 0, 0
	e.roundOrders, e.roundVolume = 0, 0
	e.logger.Info("simulation starting")
}

// Accepted 报价当天是否已成交。不公开报价时只有报价者本人可以查询
func (e *Engine) Accepted(order *model.Order, viewer string) (bool, error) {
	if !e.revealShouts && viewer != order.Agent {
		return false, fmt.Errorf("%w: %s", ErrShoutNotVisible, order.ID)
	}
	_, ok := e.accepted[order.ID]
	return ok, nil
}

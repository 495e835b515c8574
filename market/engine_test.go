package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/doubleauction/equilibrium"
	"example.com/doubleauction/model"
	"example.com/doubleauction/report"
	"example.com/doubleauction/stats"
)

type trader struct {
	id        string
	valuation float64
	side      model.Side
}

func (t trader) ID() string         { return t.id }
func (t trader) Valuation() float64 { return t.valuation }
func (t trader) Side() model.Side   { return t.side }
func (t trader) Quantity() int      { return 1 }
func (t trader) Active() bool       { return true }

type population []equilibrium.Trader

func (p population) Traders() []equilibrium.Trader { return p }

func newEngine(t *testing.T, memory int, opts ...Option) *Engine {
	t.Helper()
	logger := zaptest.NewLogger(t)
	history, err := stats.NewHistory(memory, stats.WithLogger(logger))
	require.NoError(t, err)
	opts = append([]Option{WithLogger(logger), WithInvariantChecks(true)}, opts...)
	return NewEngine(history, opts...)
}

func TestOrderPlacedAndSettled(t *testing.T) {
	engine := newEngine(t, 2)
	b := model.NewOrder("buyer", model.Bid, 100, 1)
	a := model.NewOrder("seller", model.Ask, 50, 1)

	require.NoError(t, engine.Handle(OrderPlaced{Order: b}))
	require.NoError(t, engine.Handle(OrderPlaced{Order: a}))
	matches := engine.Book().MatchOrders()
	require.Len(t, matches, 1)

	m := matches[0]
	require.NoError(t, engine.Handle(TransactionExecuted{Bid: m.Bid, Ask: m.Ask, Price: 75, Quantity: m.Quantity}))

	assert.Equal(t, 0, engine.Book().Len())
	assert.Equal(t, int64(2), engine.OrderCount)
	assert.Equal(t, int64(1), engine.TradeCount)
	assert.Equal(t, 1, engine.History().CountAcceptedAsksAbove(0))
	assert.Equal(t, 1, engine.History().CountAcceptedBidsBelow(100))

	accepted, err := engine.Accepted(b, "anyone")
	require.NoError(t, err)
	assert.True(t, accepted)
}

func TestOrderPlacedRejectsDuplicate(t *testing.T) {
	engine := newEngine(t, 1)
	o := model.NewOrder("buyer", model.Bid, 10, 1)
	require.NoError(t, engine.Handle(OrderPlaced{Order: o}))

	err := engine.Handle(OrderPlaced{Order: o})
	assert.ErrorIs(t, err, model.ErrDuplicateOrder)
	assert.Equal(t, 1, engine.History().Len())
}

func TestTransactionForUnmatchedOrders(t *testing.T) {
	engine := newEngine(t, 1)
	b := model.NewOrder("buyer", model.Bid, 10, 1)
	a := model.NewOrder("seller", model.Ask, 20, 1)
	require.NoError(t, engine.Handle(OrderPlaced{Order: b}))
	require.NoError(t, engine.Handle(OrderPlaced{Order: a}))

	err := engine.Handle(TransactionExecuted{Bid: b, Ask: a, Price: 15, Quantity: 1})
	assert.ErrorIs(t, err, model.ErrNotMatched)
	assert.ErrorIs(t, engine.Handle(TransactionExecuted{Bid: b, Quantity: 1}), model.ErrInvalidOrder)
	assert.Error(t, engine.Handle(nil))
}

func TestHiddenShouts(t *testing.T) {
	engine := newEngine(t, 1, WithRevealShouts(false))
	o := model.NewOrder("buyer", model.Bid, 10, 1)
	require.NoError(t, engine.Handle(OrderPlaced{Order: o}))

	_, err := engine.Accepted(o, "rival")
	assert.ErrorIs(t, err, ErrShoutNotVisible)

	accepted, err := engine.Accepted(o, "buyer")
	require.NoError(t, err)
	assert.False(t, accepted)
}

func TestRoundClosedResetsBookAndAgesHistory(t *testing.T) {
	board := report.NewBoard()
	engine := newEngine(t, 1, WithSink(board))
	require.NoError(t, engine.Handle(OrderPlaced{Order: model.NewOrder("buyer", model.Bid, 10, 1)}))
	require.NoError(t, engine.Handle(OrderPlaced{Order: model.NewOrder("seller", model.Ask, 5, 1)}))

	require.NoError(t, engine.Handle(RoundClosed{}))

	assert.Equal(t, 0, engine.Book().Len())
	assert.Equal(t, 0, engine.History().Len())
	assert.Equal(t, 1, engine.Round)
	orders, _ := board.Value("market.round.orders")
	assert.Equal(t, 2.0, orders)
}

func TestMarketOpenRecalculatesEquilibrium(t *testing.T) {
	board := report.NewBoard()
	traders := population{
		trader{"b1", 120, model.Bid}, trader{"b2", 100, model.Bid}, trader{"b3", 80, model.Bid},
		trader{"s1", 70, model.Ask}, trader{"s2", 90, model.Ask}, trader{"s3", 110, model.Ask},
	}
	calc := equilibrium.NewCalculator(traders, equilibrium.WithSink(board))
	engine := newEngine(t, 3, WithEquilibrium(calc), WithSink(board))

	require.NoError(t, engine.Handle(SimulationStarting{}))
	require.NoError(t, engine.Handle(MarketOpen{}))

	assert.Equal(t, 1, engine.Day)
	assert.Equal(t, 95.0, engine.Equilibrium().MidEquilibriumPrice())

	b := model.NewOrder("b1", model.Bid, 100, 1)
	a := model.NewOrder("s1", model.Ask, 90, 1)
	require.NoError(t, engine.Handle(OrderPlaced{Order: b}))
	require.NoError(t, engine.Handle(OrderPlaced{Order: a}))
	require.NoError(t, engine.Handle(TransactionExecuted{Bid: b, Ask: a, Price: 97, Quantity: 1}))

	deviation, ok := board.Value("market.transaction.deviation")
	require.True(t, ok)
	assert.Equal(t, 2.0, deviation)

	// 新的一天清除成交标记
	require.NoError(t, engine.Handle(MarketOpen{}))
	accepted, err := engine.Accepted(b, "b1")
	require.NoError(t, err)
	assert.False(t, accepted)
}

func TestRunProcessesEventsInOrder(t *testing.T) {
	engine := newEngine(t, 2)
	events := make(chan Event, 4)
	events <- SimulationStarting{}
	events <- MarketOpen{}
	events <- OrderPlaced{Order: model.NewOrder("buyer", model.Bid, 10, 1)}
	events <- RoundClosed{}
	close(events)

	require.NoError(t, engine.Run(context.Background(), events))
	assert.Equal(t, int64(1), engine.OrderCount)
	assert.Equal(t, 1, engine.Round)
}

func TestRunStopsOnError(t *testing.T) {
	engine := newEngine(t, 2)
	o := model.NewOrder("buyer", model.Bid, 10, 1)
	events := make(chan Event, 2)
	events <- OrderPlaced{Order: o}
	events <- OrderPlaced{Order: o}

	assert.ErrorIs(t, engine.Run(context.Background(), events), model.ErrDuplicateOrder)
}

func TestRunStopsOnCancel(t *testing.T) {
	engine := newEngine(t, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := engine.Run(ctx, make(chan Event))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/doubleauction/model"
)

func beliefHistory(t *testing.T) *History {
	h := newHistory(t, 3)
	a10 := model.NewOrder("s1", model.Ask, 10, 1)
	a12 := model.NewOrder("s2", model.Ask, 12, 1)
	a14 := model.NewOrder("s3", model.Ask, 14, 1)
	b11 := model.NewOrder("b1", model.Bid, 11, 1)
	b13 := model.NewOrder("b2", model.Bid, 13, 1)
	for _, o := range []*model.Order{a10, a12, a14, b11, b13} {
		h.RecordPlaced(o)
	}
	h.RecordAccepted(a10, a12, b13)
	return h
}

func TestAskAcceptance(t *testing.T) {
	h := beliefHistory(t)
	assert.Equal(t, 1.0, h.AskAcceptance(11))
	assert.Equal(t, 1.0, h.AskAcceptance(13))
	assert.Equal(t, 0.0, h.AskAcceptance(14))
	assert.Equal(t, 0.0, newHistory(t, 1).AskAcceptance(5))
}

func TestBidAcceptance(t *testing.T) {
	h := beliefHistory(t)
	assert.Equal(t, 0.5, h.BidAcceptance(10))
	assert.Equal(t, 1.0, h.BidAcceptance(12))
	assert.Equal(t, 0.0, newHistory(t, 1).BidAcceptance(5))
}

func TestSearchAsk(t *testing.T) {
	h := beliefHistory(t)
	price, profit, ok := h.SearchAsk(9, 10, 15, DefaultStep)
	require.True(t, ok)
	assert.Equal(t, 13.0, price)
	assert.Equal(t, 4.0, profit)

	_, _, ok = h.SearchAsk(9, 15, 15, 0)
	assert.False(t, ok)
}

func TestSearchBid(t *testing.T) {
	h := beliefHistory(t)
	price, profit, ok := h.SearchBid(16, 10, 15, 0)
	require.True(t, ok)
	assert.Equal(t, 12.0, price)
	assert.Equal(t, 4.0, profit)
}

func TestSearchStopsWhenStepCannotAdvance(t *testing.T) {
	h := beliefHistory(t)
	tests := []struct {
		name     string
		from, to float64
	}{
		{"step below float spacing", 1e16, 1e16 + 10},
		{"unbounded above", 10, math.Inf(1)},
		{"unbounded below", math.Inf(-1), 10},
		{"nan bound", math.NaN(), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := h.SearchAsk(0, tt.from, tt.to, DefaultStep)
			assert.False(t, ok)
			_, _, ok = h.SearchBid(20, tt.from, tt.to, DefaultStep)
			assert.False(t, ok)
		})
	}
}

func TestSearchCoarseStepAtLargePrices(t *testing.T) {
	h := newHistory(t, 1)
	// 1e16处相邻浮点数相差2，步长4可以推进
	price, _, ok := h.SearchAsk(0, 1e16, 1e16+10, 4)
	require.True(t, ok)
	assert.Equal(t, 1e16, price)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchOrdersSplitsQuantities(t *testing.T) {
	book := NewOrderBook()
	b1 := bid(100, 3)
	b2 := bid(95, 1)
	a1 := ask(50, 2)
	a2 := ask(60, 2)
	for _, o := range []*Order{b1, b2, a1, a2} {
		require.NoError(t, book.Insert(o))
	}

	matches := book.MatchOrders()
	require.Len(t, matches, 3)
	assert.Equal(t, Match{Bid: b1, Ask: a1, Quantity: 2}, matches[0])
	assert.Equal(t, Match{Bid: b1, Ask: a2, Quantity: 1}, matches[1])
	assert.Equal(t, Match{Bid: b2, Ask: a2, Quantity: 1}, matches[2])
	assert.Equal(t, 4, book.MatchedVolume())

	// 只读操作
	assert.Equal(t, matches, book.MatchOrders())
}

func TestSettleEvictsFilledOrders(t *testing.T) {
	book := NewOrderBook()
	b := bid(100, 2)
	a := ask(90, 1)
	require.NoError(t, book.Insert(b))
	require.NoError(t, book.Insert(a))

	matches := book.MatchOrders()
	require.Len(t, matches, 1)
	require.NoError(t, book.Settle(matches[0]))

	assert.False(t, book.Contains(a))
	assert.True(t, book.Contains(b))
	assert.Equal(t, 0, a.Quantity)
	assert.Equal(t, 1, b.Quantity)
	assert.Equal(t, 0, book.MatchedVolume())
	assert.Equal(t, 100.0, book.Quote().Bid)
	require.NoError(t, book.CheckInvariants())
}

func TestSettleRejectsUnmatched(t *testing.T) {
	book := NewOrderBook()
	b := bid(10, 1)
	a := ask(20, 1)
	require.NoError(t, book.Insert(b))
	require.NoError(t, book.Insert(a))

	err := book.Settle(Match{Bid: b, Ask: a, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotMatched)
	assert.ErrorIs(t, book.Settle(Match{Bid: b, Ask: ask(5, 1), Quantity: 1}), ErrOrderNotFound)
	assert.ErrorIs(t, book.Settle(Match{Bid: b, Ask: a, Quantity: 0}), ErrInvalidOrder)
	assert.ErrorIs(t, book.Settle(Match{Bid: a, Ask: b, Quantity: 1}), ErrInvalidOrder)
	require.NoError(t, book.CheckInvariants())
}

func TestEachWalksPartitionOrder(t *testing.T) {
	book := NewOrderBook()
	for _, p := range []float64{30, 10, 20} {
		require.NoError(t, book.Insert(bid(p, 1)))
	}
	for _, p := range []float64{50, 40} {
		require.NoError(t, book.Insert(ask(p, 2)))
	}

	var prices []float64
	book.Each(UnmatchedBids, func(o *Order, units int) bool {
		prices = append(prices, o.Price)
		assert.Equal(t, 1, units)
		return true
	})
	assert.Equal(t, []float64{30, 20, 10}, prices)

	prices = nil
	book.Each(UnmatchedAsks, func(o *Order, units int) bool {
		prices = append(prices, o.Price)
		return false
	})
	assert.Equal(t, []float64{40}, prices)
}

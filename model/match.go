package model

import (
	"fmt"
	"math"

	"github.com/google/btree"
)

// HighestMatchedAsk 最高已匹配卖价，没有时为 -Inf
func (ob *OrderBook) HighestMatchedAsk() float64 {
	return ob.priceOr(MatchedAsks, math.Inf(-1))
}

// LowestMatchedBid 最低已匹配买价，没有时为 +Inf
func (ob *OrderBook) LowestMatchedBid() float64 {
	return ob.priceOr(MatchedBids, math.Inf(1))
}

// HighestUnmatchedBid 最高未匹配买价，没有时为 -Inf
func (ob *OrderBook) HighestUnmatchedBid() float64 {
	return ob.priceOr(UnmatchedBids, math.Inf(-1))
}

// LowestUnmatchedAsk 最低未匹配卖价，没有时为 +Inf
func (ob *OrderBook) LowestUnmatchedAsk() float64 {
	return ob.priceOr(UnmatchedAsks, math.Inf(1))
}

func (ob *OrderBook) priceOr(p Partition, sentinel float64) float64 {
	if e := ob.top[p]; e != nil {
		return e.order.Price
	}
	return sentinel
}

// Peek 分区顶端的订单（已匹配分区为最不具竞争力的，未匹配分区为最具竞争力的）
func (ob *OrderBook) Peek(p Partition) (*Order, bool) {
	e := ob.top[p]
	if e == nil {
		return nil, false
	}
	return e.order, true
}

// Quote 当前买卖报价
func (ob *OrderBook) Quote() Quote {
	return Quote{
		Bid: ob.HighestUnmatchedBid(),
		Ask: ob.LowestUnmatchedAsk(),
	}
}

// Size 分区中的订单数
func (ob *OrderBook) Size(p Partition) int {
	return ob.tree(p).Len()
}

// Each 按分区顺序遍历订单及其在该分区中的单位数，fn返回false时停止
func (ob *OrderBook) Each(p Partition, fn func(order *Order, units int) bool) {
	matched := p == MatchedBids || p == MatchedAsks
	ob.tree(p).Ascend(func(e *entry) bool {
		if matched {
			return fn(e.order, e.matched)
		}
		return fn(e.order, e.unmatched)
	})
}

func (ob *OrderBook) tree(p Partition) *btree.BTreeG[*entry] {
	switch p {
	case MatchedBids:
		return ob.matchedBids
	case MatchedAsks:
		return ob.matchedAsks
	case UnmatchedBids:
		return ob.unmatchedBids
	default:
		return ob.unmatchedAsks
	}
}

// MatchedVolume 已匹配的总单位数
func (ob *OrderBook) MatchedVolume() int {
	volume := 0
	ob.matchedBids.Ascend(func(e *entry) bool {
		volume += e.matched
		return true
	})
	return volume
}

// MatchOrders 返回当前已匹配的买卖对（最具竞争力的在前），不修改订单簿
func (ob *OrderBook) MatchOrders() []Match {
	var bids, asks []*entry
	ob.matchedBids.Descend(func(e *entry) bool {
		bids = append(bids, e)
		return true
	})
	ob.matchedAsks.Descend(func(e *entry) bool {
		asks = append(asks, e)
		return true
	})

	var matches []Match
	i, j := 0, 0
	bidLeft, askLeft := 0, 0
	for i < len(bids) && j < len(asks) {
		if bidLeft == 0 {
			bidLeft = bids[i].matched
		}
		if askLeft == 0 {
			askLeft = asks[j].matched
		}
		qty := min(bidLeft, askLeft)
		matches = append(matches, Match{Bid: bids[i].order, Ask: asks[j].order, Quantity: qty})

		bidLeft -= qty
		askLeft -= qty
		if bidLeft == 0 {
			i++
		}
		if askLeft == 0 {
			j++
		}
	}
	return matches
}

// Settle 结算一对已匹配订单：减少双方的已匹配单位和数量，完全成交的订单被移出
func (ob *OrderBook) Settle(m Match) error {
	if m.Quantity <= 0 {
		return fmt.Errorf("%w: non-positive settlement quantity %d", ErrInvalidOrder, m.Quantity)
	}
	bid, ok := ob.orders[m.Bid.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, m.Bid.ID)
	}
	ask, ok := ob.orders[m.Ask.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, m.Ask.ID)
	}
	if bid.order.Side != Bid || ask.order.Side != Ask {
		return fmt.Errorf("%w: settlement needs a bid and an ask", ErrInvalidOrder)
	}
	if bid.matched < m.Quantity {
		return fmt.Errorf("%w: %s has %d matched units, settling %d", ErrNotMatched, m.Bid.ID, bid.matched, m.Quantity)
	}
	if ask.matched < m.Quantity {
		return fmt.Errorf("%w: %s has %d matched units, settling %d", ErrNotMatched, m.Ask.ID, ask.matched, m.Quantity)
	}

	ob.fill(bid, m.Quantity)
	ob.fill(ask, m.Quantity)
	return nil
}

func (ob *OrderBook) fill(e *entry, qty int) {
	e.matched -= qty
	e.order.Quantity -= qty
	if e.matched == 0 {
		h := ob.half(e.order.Side)
		h.matched.Delete(e)
		ob.refresh(h.mp)
	}
	if e.matched == 0 && e.unmatched == 0 {
		delete(ob.orders, e.order.ID)
	}
}

// CheckInvariants 检查四个分区的不变量，违反时返回描述性错误
func (ob *OrderBook) CheckInvariants() error {
	lowestMatchedBid := ob.LowestMatchedBid()
	highestMatchedAsk := ob.HighestMatchedAsk()
	highestUnmatchedBid := ob.HighestUnmatchedBid()
	lowestUnmatchedAsk := ob.LowestUnmatchedAsk()

	if lowestMatchedBid < highestMatchedAsk {
		return fmt.Errorf("%w: lowest matched bid %g below highest matched ask %g",
			ErrInvariantViolation, lowestMatchedBid, highestMatchedAsk)
	}
	if highestUnmatchedBid > lowestMatchedBid {
		return fmt.Errorf("%w: unmatched bid %g beats matched bid %g",
			ErrInvariantViolation, highestUnmatchedBid, lowestMatchedBid)
	}
	if lowestUnmatchedAsk < highestMatchedAsk {
		return fmt.Errorf("%w: unmatched ask %g beats matched ask %g",
			ErrInvariantViolation, lowestUnmatchedAsk, highestMatchedAsk)
	}
	if highestUnmatchedBid >= lowestUnmatchedAsk {
		return fmt.Errorf("%w: unmatched bid %g crosses unmatched ask %g",
			ErrInvariantViolation, highestUnmatchedBid, lowestUnmatchedAsk)
	}

	bidVolume, askVolume := 0, 0
	ob.matchedBids.Ascend(func(e *entry) bool {
		bidVolume += e.matched
		return true
	})
	ob.matchedAsks.Ascend(func(e *entry) bool {
		askVolume += e.matched
		return true
	})
	if bidVolume != askVolume {
		return fmt.Errorf("%w: matched bid volume %d != matched ask volume %d",
			ErrInvariantViolation, bidVolume, askVolume)
	}

	for id, e := range ob.orders {
		if e.matched < 0 || e.unmatched < 0 || e.matched+e.unmatched != e.order.Quantity {
			return fmt.Errorf("%w: %s holds %d matched and %d unmatched units for quantity %d",
				ErrInvariantViolation, id, e.matched, e.unmatched, e.order.Quantity)
		}
		h := ob.half(e.order.Side)
		if _, in := h.matched.Get(e); in != (e.matched > 0) {
			return fmt.Errorf("%w: %s matched partition membership out of sync", ErrInvariantViolation, id)
		}
		if _, in := h.unmatched.Get(e); in != (e.unmatched > 0) {
			return fmt.Errorf("%w: %s unmatched partition membership out of sync", ErrInvariantViolation, id)
		}
	}
	for _, p := range []Partition{MatchedBids, MatchedAsks, UnmatchedBids, UnmatchedAsks} {
		if head, _ := ob.tree(p).Min(); head != ob.top[p] {
			return fmt.Errorf("%w: cached top of %s out of sync", ErrInvariantViolation, p)
		}
		var stale *entry
		ob.tree(p).Ascend(func(e *entry) bool {
			if ob.orders[e.order.ID] != e {
				stale = e
				return false
			}
			return true
		})
		if stale != nil {
			return fmt.Errorf("%w: %s left in %s", ErrInvariantViolation, stale.order.ID, p)
		}
	}
	return nil
}

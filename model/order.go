package model

import (
	"fmt"

	"github.com/google/btree"
	"github.com/google/uuid"
)

// DefaultDegree btree的默认度
const DefaultDegree = 32

// NewOrderBook 创建新的四堆订单簿
func NewOrderBook() *OrderBook {
	return NewOrderBookDegree(DefaultDegree)
}

// NewOrderBookDegree 用指定的btree度创建订单簿
func NewOrderBookDegree(degree int) *OrderBook {
	if degree < 2 {
		degree = DefaultDegree
	}
	return &OrderBook{
		matchedBids:   btree.NewG(degree, func(a, b *entry) bool { return beats(b, a) }),
		matchedAsks:   btree.NewG(degree, func(a, b *entry) bool { return beats(b, a) }),
		unmatchedBids: btree.NewG(degree, beats),
		unmatchedAsks: btree.NewG(degree, beats),
		orders:        make(map[uuid.UUID]*entry),
		degree:        degree,
	}
}

// beats a是否比同方向的b更具竞争力：价格优先，同价时间优先
func beats(a, b *entry) bool {
	if a.order.Price != b.order.Price {
		if a.order.Side == Bid {
			return a.order.Price > b.order.Price
		}
		return a.order.Price < b.order.Price
	}
	return a.seq < b.seq
}

// crosses 两个方向相反的订单能否成交
func crosses(a, b *entry) bool {
	if a.order.Side == Bid {
		return a.order.Price >= b.order.Price
	}
	return a.order.Price <= b.order.Price
}

// half 一个方向上的已匹配和未匹配分区
type half struct {
	matched   *btree.BTreeG[*entry]
	unmatched *btree.BTreeG[*entry]
	mp, up    Partition
}

func (ob *OrderBook) half(side Side) half {
	if side == Bid {
		return half{matched: ob.matchedBids, unmatched: ob.unmatchedBids, mp: MatchedBids, up: UnmatchedBids}
	}
	return half{matched: ob.matchedAsks, unmatched: ob.unmatchedAsks, mp: MatchedAsks, up: UnmatchedAsks}
}

// refresh 分区成员变化后更新其顶端缓存
func (ob *OrderBook) refresh(p Partition) {
	ob.top[p], _ = ob.tree(p).Min()
}

func opposite(side Side) Side {
	if side == Bid {
		return Ask
	}
	return Bid
}

// Insert 插入订单并重新建立四个分区的不变量
func (ob *OrderBook) Insert(order *Order) error {
	if err := order.Validate(); err != nil {
		return err
	}
	if _, exists := ob.orders[order.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, order.ID)
	}

	ob.seq++
	e := &entry{order: order, seq: ob.seq}
	ob.orders[order.ID] = e

	own := ob.half(order.Side)
	other := ob.half(opposite(order.Side))

	remaining := order.Quantity
	for remaining > 0 {
		best, weakest := ob.top[other.up], ob.top[own.mp]
		hasBest, hasWeakest := best != nil, weakest != nil

		switch {
		case hasBest && crosses(e, best) && (!hasWeakest || crosses(weakest, best)):
			// 与最优未匹配对手单成交，匹配量增加
			n := min(remaining, best.unmatched)
			ob.promote(best, n)
			ob.addMatched(e, n)
			remaining -= n
		case hasWeakest && beats(e, weakest):
			// 挤出最不具竞争力的已匹配订单
			n := min(remaining, weakest.matched)
			ob.demote(weakest, n)
			ob.addMatched(e, n)
			remaining -= n
		default:
			ob.addUnmatched(e, remaining)
			remaining = 0
		}
	}
	return nil
}

// Remove 撤销驻留订单的全部单位
func (ob *OrderBook) Remove(order *Order) error {
	e, exists := ob.orders[order.ID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, order.ID)
	}

	own := ob.half(order.Side)
	if e.unmatched > 0 {
		own.unmatched.Delete(e)
		ob.refresh(own.up)
		e.unmatched = 0
	}
	if e.matched > 0 {
		n := e.matched
		own.matched.Delete(e)
		ob.refresh(own.mp)
		e.matched = 0
		ob.rebalance(order.Side, n)
	}
	delete(ob.orders, order.ID)
	return nil
}

// rebalance 某一方向失去n个已匹配单位后恢复平衡：
// 能成交时提升同方向最优未匹配订单，否则降级对手方最不具竞争力的已匹配订单
func (ob *OrderBook) rebalance(side Side, n int) {
	own := ob.half(side)
	other := ob.half(opposite(side))

	for n > 0 {
		partner := ob.top[other.mp]
		if partner == nil {
			return
		}
		if cand := ob.top[own.up]; cand != nil && crosses(cand, partner) {
			k := min(n, cand.unmatched)
			ob.promote(cand, k)
			n -= k
			continue
		}
		k := min(n, partner.matched)
		ob.demote(partner, k)
		n -= k
	}
}

// Contains 订单是否驻留在订单簿中
func (ob *OrderBook) Contains(order *Order) bool {
	_, exists := ob.orders[order.ID]
	return exists
}

// Len 驻留订单数
func (ob *OrderBook) Len() int {
	return len(ob.orders)
}

// Units 订单已匹配和未匹配的单位数
func (ob *OrderBook) Units(order *Order) (matched, unmatched int, ok bool) {
	e, exists := ob.orders[order.ID]
	if !exists {
		return 0, 0, false
	}
	return e.matched, e.unmatched, true
}

// Reset 清空四个分区，用于每个交易日或回合开始
func (ob *OrderBook) Reset() {
	ob.matchedBids.Clear(false)
	ob.matchedAsks.Clear(false)
	ob.unmatchedBids.Clear(false)
	ob.unmatchedAsks.Clear(false)
	ob.orders = make(map[uuid.UUID]*entry)
	ob.top = [4]*entry{}
	ob.seq = 0
}

func (ob *OrderBook) addMatched(e *entry, n int) {
	if e.matched == 0 {
		h := ob.half(e.order.Side)
		h.matched.ReplaceOrInsert(e)
		ob.refresh(h.mp)
	}
	e.matched += n
}

func (ob *OrderBook) addUnmatched(e *entry, n int) {
	if e.unmatched == 0 {
		h := ob.half(e.order.Side)
		h.unmatched.ReplaceOrInsert(e)
		ob.refresh(h.up)
	}
	e.unmatched += n
}

// promote 把n个未匹配单位移入已匹配分区
func (ob *OrderBook) promote(e *entry, n int) {
	e.unmatched -= n
	if e.unmatched == 0 {
		h := ob.half(e.order.Side)
		h.unmatched.Delete(e)
		ob.refresh(h.up)
	}
	ob.addMatched(e, n)
}

// demote 把n个已匹配单位移入未匹配分区
func (ob *OrderBook) demote(e *entry, n int) {
	e.matched -= n
	if e.matched == 0 {
		h := ob.half(e.order.Side)
		h.matched.Delete(e)
		ob.refresh(h.mp)
	}
	ob.addUnmatched(e, n)
}

// Package stats 记录最近若干回合的报价历史，供自适应策略估计报价被接受的概率。
//
// 排序视图在变更后的第一次查询时才重建；同一次扫描中递增的查询价格
// 由每种查询独立的前向游标摊还为O(1)。结果始终与朴素重新计数一致。
package stats

import (
	"container/list"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/doubleauction/model"
)

// DefaultMemorySize 默认保留的回合数
const DefaultMemorySize = 10

// record 驻留的历史报价
type record struct {
	id       uuid.UUID
	side     model.Side
	price    float64
	accepted bool
}

// History 历史报价统计
type History struct {
	memory  []int // 每回合插入数的循环缓冲
	current int

	orders   *list.List                  // 按插入顺序的驻留报价
	orderMap map[uuid.UUID]*list.Element // 报价句柄到链表节点的映射（O(1)重新分类）

	needsRebuild bool
	views        [numViews][]float64
	acc          accelerator

	logger *zap.Logger
}

// Option History选项
type Option func(*History)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(h *History) { h.logger = logger }
}

// NewHistory 创建保留memorySize个回合的历史统计
func NewHistory(memorySize int, opts ...Option) (*History, error) {
	if memorySize <= 0 {
		return nil, fmt.Errorf("memory size must be positive, got %d", memorySize)
	}
	h := &History{
		memory:   make([]int, memorySize),
		orders:   list.New(),
		orderMap: make(map[uuid.UUID]*list.Element),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h, nil
}

// MemorySize 保留的回合数
func (h *History) MemorySize() int {
	return len(h.memory)
}

// Len 驻留报价数
func (h *History) Len() int {
	return h.orders.Len()
}

// RecordPlaced 记录新报价，重复的句柄被忽略
func (h *History) RecordPlaced(order *model.Order) {
	if _, exists := h.orderMap[order.ID]; exists {
		h.logger.Debug("order already recorded", zap.Stringer("order", order.ID))
		return
	}
	elem := h.orders.PushBack(&record{id: order.ID, side: order.Side, price: order.Price})
	h.orderMap[order.ID] = elem
	h.memory[h.current]++
	h.invalidate()
}

// RecordAccepted 把参与成交的报价重新分类为已接受
func (h *History) RecordAccepted(orders ...*model.Order) {
	for _, order := range orders {
		elem, exists := h.orderMap[order.ID]
		if !exists {
			continue
		}
		rec := elem.Value.(*record)
		if !rec.accepted {
			rec.accepted = true
			h.invalidate()
		}
	}
}

// Accepted 报价是否驻留且已被接受
func (h *History) Accepted(order *model.Order) (accepted, resident bool) {
	elem, exists := h.orderMap[order.ID]
	if !exists {
		return false, false
	}
	return elem.Value.(*record).accepted, true
}

// AdvanceWindow 回合结束：推进循环缓冲，淘汰memorySize个回合之前的报价
func (h *History) AdvanceWindow() {
	h.current = (h.current + 1) % len(h.memory)
	evicted := h.memory[h.current]
	for i := 0; i < evicted; i++ {
		front := h.orders.Front()
		if front == nil {
			break
		}
		delete(h.orderMap, front.Value.(*record).id)
		h.orders.Remove(front)
	}
	h.memory[h.current] = 0
	if evicted > 0 {
		h.logger.Debug("evicted aged orders", zap.Int("count", evicted), zap.Int("resident", h.orders.Len()))
		h.invalidate()
	}
}

// Reset 清空全部历史，视图和游标在下次查询时重建
func (h *History) Reset() {
	clear(h.memory)
	h.current = 0
	h.orders.Init()
	h.orderMap = make(map[uuid.UUID]*list.Element)
	h.invalidate()
}

func (h *History) invalidate() {
	h.needsRebuild = true
}

// rebuild 按需重建四个排序视图
func (h *History) rebuild() {
	if !h.needsRebuild {
		return
	}
	for v := range h.views {
		h.views[v] = h.views[v][:0]
	}
	for elem := h.orders.Front(); elem != nil; elem = elem.Next() {
		rec := elem.Value.(*record)
		v := rejectedAsks
		switch {
		case rec.side == model.Ask && rec.accepted:
			v = acceptedAsks
		case rec.side == model.Bid && rec.accepted:
			v = acceptedBids
		case rec.side == model.Bid:
			v = rejectedBids
		}
		h.views[v] = append(h.views[v], rec.price)
	}
	for v := range h.views {
		slices.Sort(h.views[v])
	}
	h.acc.reset()
	h.needsRebuild = false
}

// CountAsksBelow 价格 <= x 的卖单数
func (h *History) CountAsksBelow(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	h.rebuild()
	return h.acc.below(qAsksBelowAccepted, h.views[acceptedAsks], x) +
		h.acc.below(qAsksBelowRejected, h.views[rejectedAsks], x)
}

// CountBidsAbove 价格 >= x 的买单数
func (h *History) CountBidsAbove(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	h.rebuild()
	return h.acc.above(qBidsAboveAccepted, h.views[acceptedBids], x) +
		h.acc.above(qBidsAboveRejected, h.views[rejectedBids], x)
}

// CountAcceptedAsksAbove 价格 >= x 的已接受卖单数
func (h *History) CountAcceptedAsksAbove(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	h.rebuild()
	return h.acc.above(qAcceptedAsksAbove, h.views[acceptedAsks], x)
}

// CountAcceptedBidsBelow 价格 <= x 的已接受买单数
func (h *History) CountAcceptedBidsBelow(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	h.rebuild()
	return h.acc.below(qAcceptedBidsBelow, h.views[acceptedBids], x)
}

// CountRejectedAsksBelow 价格 <= x 的未被接受卖单数
func (h *History) CountRejectedAsksBelow(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	h.rebuild()
	return h.acc.below(qRejectedAsksBelow, h.views[rejectedAsks], x)
}

// CountRejectedBidsAbove 价格 >= x 的未被接受买单数
func (h *History) CountRejectedBidsAbove(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	h.rebuild()
	return h.acc.above(qRejectedBidsAbove, h.views[rejectedBids], x)
}

// HighestBidPrice 历史中最高买价，没有时为 -Inf
func (h *History) HighestBidPrice() float64 {
	h.rebuild()
	highest := math.Inf(-1)
	for _, v := range []view{acceptedBids, rejectedBids} {
		if n := len(h.views[v]); n > 0 {
			highest = max(highest, h.views[v][n-1])
		}
	}
	return highest
}

// LowestAskPrice 历史中最低卖价，没有时为 +Inf
func (h *History) LowestAskPrice() float64 {
	h.rebuild()
	lowest := math.Inf(1)
	for _, v := range []view{acceptedAsks, rejectedAsks} {
		if len(h.views[v]) > 0 {
			lowest = min(lowest, h.views[v][0])
		}
	}
	return lowest
}

package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/btree"
	"github.com/google/uuid"
)

// Side 订单方向
type Side int

const (
	Bid Side = iota // 买单
	Ask             // 卖单
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// 订单簿错误
var (
	ErrDuplicateOrder     = errors.New("order already exists")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrOrderNotFound      = errors.New("order not found")
	ErrNotMatched         = errors.New("order not matched")
	ErrInvariantViolation = errors.New("order book invariant violated")
)

// Order 报价（shout）：某个交易者提交的带价格和数量的买单或卖单
type Order struct {
	ID       uuid.UUID // 稳定句柄，订单簿按它识别订单
	Agent    string    // 交易者引用（不透明，订单簿不持有）
	Side     Side      // 方向
	Price    float64   // 价格
	Quantity int       // 数量，只能由结算逻辑减少
	Seq      uint64    // 提交序号
}

// NewOrder 创建订单并分配新句柄
func NewOrder(agent string, side Side, price float64, quantity int) *Order {
	return &Order{
		ID:       uuid.New(),
		Agent:    agent,
		Side:     side,
		Price:    price,
		Quantity: quantity,
	}
}

// IsBid 是否买单
func (o *Order) IsBid() bool { return o.Side == Bid }

// IsAsk 是否卖单
func (o *Order) IsAsk() bool { return o.Side == Ask }

func (o *Order) String() string {
	return fmt.Sprintf("%s{%s agent=%s price=%g qty=%d}", o.Side, o.ID, o.Agent, o.Price, o.Quantity)
}

// Validate 在修改订单簿之前检查订单
func (o *Order) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: non-positive quantity %d: %s", ErrInvalidOrder, o.Quantity, o.ID)
	}
	if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) {
		return fmt.Errorf("%w: non-finite price %g: %s", ErrInvalidOrder, o.Price, o.ID)
	}
	return nil
}

// Quote 公开报价：最优未匹配买价和卖价
type Quote struct {
	Bid float64 // 最高未匹配买价，没有时为 -Inf
	Ask float64 // 最低未匹配卖价，没有时为 +Inf
}

// Spread 买卖价差
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Mid 报价中点，任意一侧缺失时为 NaN
func (q Quote) Mid() float64 {
	if math.IsInf(q.Bid, 0) || math.IsInf(q.Ask, 0) {
		return math.NaN()
	}
	return (q.Bid + q.Ask) / 2
}

func (q Quote) String() string {
	return fmt.Sprintf("bid=%g ask=%g", q.Bid, q.Ask)
}

// Match 一对暂时匹配的买单和卖单
type Match struct {
	Bid      *Order
	Ask      *Order
	Quantity int
}

// Partition 四个分区之一
type Partition int

const (
	MatchedBids Partition = iota
	MatchedAsks
	UnmatchedBids
	UnmatchedAsks
)

func (p Partition) String() string {
	switch p {
	case MatchedBids:
		return "matched bids"
	case MatchedAsks:
		return "matched asks"
	case UnmatchedBids:
		return "unmatched bids"
	default:
		return "unmatched asks"
	}
}

// entry 驻留订单，记录已匹配和未匹配的单位数
type entry struct {
	order     *Order
	seq       uint64 // 订单簿内部的插入序号，同价时用于时间优先
	matched   int
	unmatched int
}

// OrderBook 四堆订单簿
type OrderBook struct {
	matchedBids   *btree.BTreeG[*entry] // 已匹配买单（最不具竞争力的在前）
	matchedAsks   *btree.BTreeG[*entry] // 已匹配卖单（最不具竞争力的在前）
	unmatchedBids *btree.BTreeG[*entry] // 未匹配买单（最具竞争力的在前）
	unmatchedAsks *btree.BTreeG[*entry] // 未匹配卖单（最具竞争力的在前）
	orders        map[uuid.UUID]*entry  // 订单句柄到驻留订单的映射（O(1)查重）
	top           [4]*entry             // 各分区顶端，分区变化时刷新，供O(1)查看
	seq           uint64
	degree        int
}

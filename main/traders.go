package main

import (
	"fmt"
	"math/rand"

	"example.com/doubleauction/equilibrium"
	"example.com/doubleauction/model"
	"example.com/doubleauction/stats"
)

// agent 演示用交易者，每天最多交易一个单位
type agent struct {
	id        string
	side      model.Side
	valuation float64
	adaptive  bool // 使用历史统计搜索期望利润最大的报价
	traded    bool
}

func (a *agent) ID() string         { return a.id }
func (a *agent) Valuation() float64 { return a.valuation }
func (a *agent) Side() model.Side   { return a.side }
func (a *agent) Quantity() int      { return 1 }
func (a *agent) Active() bool       { return !a.traded }

// shout 生成报价：自适应交易者按历史估计的接受概率搜索，否则在预算约束内随机报价
func (a *agent) shout(rng *rand.Rand, history *stats.History, maxPrice float64) *model.Order {
	price := a.randomPrice(rng, maxPrice)
	if a.adaptive && history.Len() > 0 {
		var (
			best   float64
			profit float64
			ok     bool
		)
		if a.side == model.Bid {
			best, profit, ok = history.SearchBid(a.valuation, 0, a.valuation, stats.DefaultStep)
		} else {
			best, profit, ok = history.SearchAsk(a.valuation, a.valuation, maxPrice, stats.DefaultStep)
		}
		if ok && profit > 0 {
			price = best
		}
	}
	return model.NewOrder(a.id, a.side, price, 1)
}

func (a *agent) randomPrice(rng *rand.Rand, maxPrice float64) float64 {
	if a.side == model.Bid {
		return rng.Float64() * a.valuation
	}
	return a.valuation + rng.Float64()*(maxPrice-a.valuation)
}

// population 全部交易者
type population struct {
	agents []*agent
	byID   map[string]*agent
}

func newPopulation(perSide int, maxPrice float64, rng *rand.Rand) *population {
	p := &population{byID: make(map[string]*agent)}
	for i := 0; i < perSide; i++ {
		p.add(&agent{id: fmt.Sprintf("buyer-%d", i), side: model.Bid, valuation: rng.Float64() * maxPrice, adaptive: i%2 == 0})
		p.add(&agent{id: fmt.Sprintf("seller-%d", i), side: model.Ask, valuation: rng.Float64() * maxPrice, adaptive: i%2 == 0})
	}
	return p
}

func (p *population) add(a *agent) {
	p.agents = append(p.agents, a)
	p.byID[a.id] = a
}

func (p *population) Traders() []equilibrium.Trader {
	traders := make([]equilibrium.Trader, len(p.agents))
	for i, a := range p.agents {
		traders[i] = a
	}
	return traders
}

// newDay 新的一天所有交易者重新获得一个单位
func (p *population) newDay() {
	for _, a := range p.agents {
		a.traded = false
	}
}

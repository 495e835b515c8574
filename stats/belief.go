package stats

import (
	"iter"
	"math"
)

// AskAcceptance 卖价p被接受的估计概率：
// (已接受卖单>=p + 买单>=p) / (已接受卖单>=p + 买单>=p + 未接受卖单<=p)
func (h *History) AskAcceptance(p float64) float64 {
	taken := float64(h.CountAcceptedAsksAbove(p) + h.CountBidsAbove(p))
	rejected := float64(h.CountRejectedAsksBelow(p))
	if taken+rejected == 0 {
		return 0
	}
	return taken / (taken + rejected)
}

// BidAcceptance 买价p被接受的估计概率：
// (已接受买单<=p + 卖单<=p) / (已接受买单<=p + 卖单<=p + 未接受买单>=p)
func (h *History) BidAcceptance(p float64) float64 {
	taken := float64(h.CountAcceptedBidsBelow(p) + h.CountAsksBelow(p))
	rejected := float64(h.CountRejectedBidsAbove(p))
	if taken+rejected == 0 {
		return 0
	}
	return taken / (taken + rejected)
}

// DefaultStep 利润搜索的默认价格步长。
// 连续价格上按单位步长离散扫描，非整数价格的市场可传入更小的步长
const DefaultStep = 1.0

// SearchAsk 在[from, to)上按step递增扫描卖价，返回期望利润 (p - cost) * AskAcceptance(p) 最大的价格。
// 扫描区间为空或无法按step推进时ok为false
func (h *History) SearchAsk(cost, from, to, step float64) (price, profit float64, ok bool) {
	for p := range grid(from, to, step) {
		expected := (p - cost) * h.AskAcceptance(p)
		if !ok || expected > profit {
			price, profit, ok = p, expected, true
		}
	}
	return price, profit, ok
}

// SearchBid 在[from, to)上按step递增扫描买价，返回期望利润 (value - p) * BidAcceptance(p) 最大的价格
func (h *History) SearchBid(value, from, to, step float64) (price, profit float64, ok bool) {
	for p := range grid(from, to, step) {
		expected := (value - p) * h.BidAcceptance(p)
		if !ok || expected > profit {
			price, profit, ok = p, expected, true
		}
	}
	return price, profit, ok
}

// grid 依次产生 from + i*step (< to)。区间端点非有限，或step在from处
// 小于浮点精度时不产生任何价格
func grid(from, to, step float64) iter.Seq[float64] {
	if step <= 0 {
		step = DefaultStep
	}
	return func(yield func(float64) bool) {
		if math.IsInf(from, 0) || math.IsInf(to, 0) || math.IsNaN(from) || math.IsNaN(to) {
			return
		}
		if from+step <= from {
			return
		}
		for i := 0; ; i++ {
			p := from + float64(i)*step
			if p >= to || !yield(p) {
				return
			}
		}
	}
}

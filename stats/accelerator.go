package stats

// view 四个排序视图之一（按价格升序）
type view int

const (
	acceptedAsks view = iota
	rejectedAsks
	acceptedBids
	rejectedBids
	numViews
)

// query 每种查询各自持有游标，互不干扰
type query int

const (
	qAsksBelowAccepted query = iota
	qAsksBelowRejected
	qBidsAboveAccepted
	qBidsAboveRejected
	qAcceptedAsksAbove
	qAcceptedBidsBelow
	qRejectedAsksBelow
	qRejectedBidsAbove
	numQueries
)

// cursor 只向前移动的游标，pos即视图中已越过的价格个数
type cursor struct {
	pos     int
	last    float64
	started bool
}

// count 统计视图中 < x（inclusive时为 <= x）的价格个数。
// 查询价格递增时从上次位置继续，否则从头扫描
func (c *cursor) count(prices []float64, x float64, inclusive bool) int {
	if !c.started || x < c.last {
		c.pos = 0
	}
	c.started = true
	c.last = x
	for c.pos < len(prices) && (prices[c.pos] < x || inclusive && prices[c.pos] == x) {
		c.pos++
	}
	return c.pos
}

// accelerator 递增查询加速器：针对按价格递增扫描的访问模式，摊还O(1)
type accelerator struct {
	cursors [numQueries]cursor
}

// reset 视图重建后所有游标失效
func (a *accelerator) reset() {
	a.cursors = [numQueries]cursor{}
}

// below 价格 <= x 的个数
func (a *accelerator) below(q query, prices []float64, x float64) int {
	return a.cursors[q].count(prices, x, true)
}

// above 价格 >= x 的个数
func (a *accelerator) above(q query, prices []float64, x float64) int {
	return len(prices) - a.cursors[q].count(prices, x, false)
}

package main

import (
	"fmt"
	"os"

	"example.com/doubleauction/model"
)

// ======================== 演示逻辑 ========================
// 依次插入买卖单，每次插入后打印四个分区和报价
func main() {
	book := model.NewOrderBookDegree(3) // 度为3，便于观察

	orders := []*model.Order{
		model.NewOrder("buy1", model.Bid, 100, 1),
		model.NewOrder("buy2", model.Bid, 90, 1),
		model.NewOrder("sell1", model.Ask, 80, 1),
		model.NewOrder("sell2", model.Ask, 95, 2),
		model.NewOrder("buy3", model.Bid, 120, 3),
		model.NewOrder("sell3", model.Ask, 70, 1),
	}

	for _, o := range orders {
		if err := book.Insert(o); err != nil {
			fmt.Fprintln(os.Stderr, "insert failed:", err)
			os.Exit(1)
		}
		fmt.Printf("\n===== 插入 %s %s 价格：%g 数量：%d =====\n", o.Agent, o.Side, o.Price, o.Quantity)
		printBook(book)
	}

	// 撮合结果（不修改订单簿）
	fmt.Println("\n===== 已匹配的买卖对 =====")
	for _, m := range book.MatchOrders() {
		fmt.Printf("买：%s(%g) | 卖：%s(%g) | 数量：%d\n", m.Bid.Agent, m.Bid.Price, m.Ask.Agent, m.Ask.Price, m.Quantity)
	}

	if err := book.CheckInvariants(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printBook(book *model.OrderBook) {
	for _, p := range []model.Partition{model.MatchedBids, model.MatchedAsks, model.UnmatchedBids, model.UnmatchedAsks} {
		fmt.Printf("%-15s:", p)
		book.Each(p, func(o *model.Order, units int) bool {
			fmt.Printf(" %s@%g×%d", o.Agent, o.Price, units)
			return true
		})
		fmt.Println()
	}
	fmt.Println("报价：", book.Quote())
}

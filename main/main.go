package main

import (
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"

	"example.com/doubleauction/config"
	"example.com/doubleauction/equilibrium"
	"example.com/doubleauction/market"
	"example.com/doubleauction/model"
	"example.com/doubleauction/report"
	"example.com/doubleauction/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}
}

// simulation 演示用调度器：逐日逐回合驱动市场引擎
type simulation struct {
	cfg     config.Config
	rng     *rand.Rand
	agents  *population
	engine  *market.Engine
	board   *report.Board
	logger  *zap.Logger
	surplus float64 // 当天实际实现的剩余
}

func run(cfg config.Config, logger *zap.Logger) error {
	rng := rand.New(rand.NewSource(cfg.Seed))
	agents := newPopulation(cfg.Traders, cfg.MaxPrice, rng)

	board := report.NewBoard()
	sink := report.Tee{board, report.NewLogSink(logger)}

	history, err := stats.NewHistory(cfg.MemorySize, stats.WithLogger(logger))
	if err != nil {
		return err
	}
	calc := equilibrium.NewCalculator(agents,
		equilibrium.WithLogger(logger),
		equilibrium.WithSink(sink))
	engine := market.NewEngine(history,
		market.WithBook(model.NewOrderBookDegree(cfg.BTreeDegree)),
		market.WithEquilibrium(calc),
		market.WithLogger(logger),
		market.WithSink(sink),
		market.WithRevealShouts(cfg.RevealShouts),
		market.WithInvariantChecks(cfg.CheckInvariants))

	sim := &simulation{cfg: cfg, rng: rng, agents: agents, engine: engine, board: board, logger: logger}
	return sim.run()
}

func (s *simulation) run() error {
	if err := s.engine.Handle(market.SimulationStarting{}); err != nil {
		return err
	}
	for day := 0; day < s.cfg.Days; day++ {
		s.agents.newDay()
		s.surplus = 0
		if err := s.engine.Handle(market.MarketOpen{}); err != nil {
			return err
		}
		for round := 0; round < s.cfg.Rounds; round++ {
			if err := s.round(); err != nil {
				return err
			}
		}
		s.closeDay()
	}

	s.logger.Info("simulation finished",
		zap.Int64("orders", s.engine.OrderCount),
		zap.Int64("trades", s.engine.TradeCount))
	return nil
}

// round 每个仍未成交的交易者报一次价，每次报价后立即结算所有匹配
func (s *simulation) round() error {
	order := s.rng.Perm(len(s.agents.agents))
	for _, i := range order {
		a := s.agents.agents[i]
		if a.traded {
			continue
		}
		shout := a.shout(s.rng, s.engine.History(), s.cfg.MaxPrice)
		if err := s.engine.Handle(market.OrderPlaced{Order: shout}); err != nil {
			return err
		}
		if err := s.settle(); err != nil {
			return err
		}
	}
	return s.engine.Handle(market.RoundClosed{})
}

func (s *simulation) settle() error {
	for _, m := range s.engine.Book().MatchOrders() {
		price := (m.Bid.Price + m.Ask.Price) / 2
		err := s.engine.Handle(market.TransactionExecuted{Bid: m.Bid, Ask: m.Ask, Price: price, Quantity: m.Quantity})
		if err != nil {
			return err
		}
		buyer := s.agents.byID[m.Bid.Agent]
		seller := s.agents.byID[m.Ask.Agent]
		buyer.traded = true
		seller.traded = true
		s.surplus += (buyer.valuation - seller.valuation) * float64(m.Quantity)
	}
	return nil
}

func (s *simulation) closeDay() {
	eq := s.engine.Equilibrium().Result()
	efficiency := 0.0
	if eq.Surplus > 0 {
		efficiency = s.surplus / eq.Surplus
	}
	s.board.Publish("market.day.efficiency", efficiency)
	s.logger.Info("day closed",
		zap.Int("day", s.engine.Day),
		zap.Float64("surplus", s.surplus),
		zap.Float64("equilibrium_surplus", eq.Surplus),
		zap.Float64("efficiency", efficiency),
		zap.Float64("mid_equilibrium_price", s.engine.Equilibrium().MidEquilibriumPrice()))
}

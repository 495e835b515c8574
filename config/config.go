// Package config 从CDA_*环境变量加载模拟配置
package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"example.com/doubleauction/model"
	"example.com/doubleauction/stats"
)

// Config 模拟配置
type Config struct {
	MemorySize      int     // 历史统计保留的回合数
	RevealShouts    bool    // 是否向其他交易者公开报价的成交状态
	BTreeDegree     int     // 订单簿btree的度
	CheckInvariants bool    // 每个事件后检查订单簿不变量
	LogLevel        string  // debug/info/warn/error
	LogDevelopment  bool    // 使用开发模式的日志格式
	Days            int     // 模拟天数
	Rounds          int     // 每天回合数
	Traders         int     // 每方交易者数
	MaxPrice        float64 // 估值上限
	Seed            int64   // 随机种子
}

// Default 默认配置
func Default() Config {
	return Config{
		MemorySize:   stats.DefaultMemorySize,
		RevealShouts: true,
		BTreeDegree:  model.DefaultDegree,
		LogLevel:     "info",
		Days:         5,
		Rounds:       10,
		Traders:      10,
		MaxPrice:     200,
		Seed:         1,
	}
}

// Load 读取环境变量覆盖默认配置
func Load() (Config, error) {
	cfg := Default()
	var errs []error
	read := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	cfg.MemorySize, err = GetEnv("CDA_MEMORY_SIZE", cfg.MemorySize)
	read(err)
	cfg.RevealShouts, err = GetEnv("CDA_REVEAL_SHOUTS", cfg.RevealShouts)
	read(err)
	cfg.BTreeDegree, err = GetEnv("CDA_BTREE_DEGREE", cfg.BTreeDegree)
	read(err)
	cfg.CheckInvariants, err = GetEnv("CDA_CHECK_INVARIANTS", cfg.CheckInvariants)
	read(err)
	cfg.LogLevel, err = GetEnv("CDA_LOG_LEVEL", cfg.LogLevel)
	read(err)
	cfg.LogDevelopment, err = GetEnv("CDA_LOG_DEVELOPMENT", cfg.LogDevelopment)
	read(err)
	cfg.Days, err = GetEnv("CDA_DAYS", cfg.Days)
	read(err)
	cfg.Rounds, err = GetEnv("CDA_ROUNDS", cfg.Rounds)
	read(err)
	cfg.Traders, err = GetEnv("CDA_TRADERS", cfg.Traders)
	read(err)
	cfg.MaxPrice, err = GetEnv("CDA_MAX_PRICE", cfg.MaxPrice)
	read(err)
	cfg.Seed, err = GetEnv("CDA_SEED", cfg.Seed)
	read(err)

	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, cfg.Validate()
}

// Validate 检查配置取值
func (c Config) Validate() error {
	switch {
	case c.MemorySize <= 0:
		return fmt.Errorf("memory size must be positive, got %d", c.MemorySize)
	case c.BTreeDegree < 2:
		return fmt.Errorf("btree degree must be at least 2, got %d", c.BTreeDegree)
	case c.Days <= 0 || c.Rounds <= 0:
		return fmt.Errorf("days and rounds must be positive, got %d and %d", c.Days, c.Rounds)
	case c.Traders < 0:
		return fmt.Errorf("trader count must not be negative, got %d", c.Traders)
	case c.MaxPrice <= 0:
		return fmt.Errorf("max price must be positive, got %g", c.MaxPrice)
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// NewLogger 按配置创建zap日志
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.LogDevelopment {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

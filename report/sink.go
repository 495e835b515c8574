// Package report 提供显式传入的指标接收器，替代进程级的全局结果板
package report

import (
	"sort"

	"go.uber.org/zap"
)

// Sink 接收组件发布的命名数值
type Sink interface {
	Publish(name string, value float64)
}

// Nop 丢弃所有指标
type Nop struct{}

func (Nop) Publish(string, float64) {}

// Board 内存中的指标板，保存每个指标的最新值
type Board struct {
	values map[string]float64
}

// NewBoard 创建空指标板
func NewBoard() *Board {
	return &Board{values: make(map[string]float64)}
}

func (b *Board) Publish(name string, value float64) {
	b.values[name] = value
}

// Value 读取指标最新值
func (b *Board) Value(name string) (float64, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Names 已发布的指标名（排序后）
func (b *Board) Names() []string {
	names := make([]string, 0, len(b.values))
	for name := range b.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset 清空指标板
func (b *Board) Reset() {
	b.values = make(map[string]float64)
}

// LogSink 把指标写入zap日志
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink 创建日志接收器，logger为nil时不输出
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(name string, value float64) {
	s.logger.Debug("metric", zap.String("name", name), zap.Float64("value", value))
}

// Tee 把指标同时发给多个接收器
type Tee []Sink

func (t Tee) Publish(name string, value float64) {
	for _, s := range t {
		s.Publish(name, value)
	}
}

// Package messaging 提供重投退避计算
package messaging

import (
	"math"
	"time"

	"tattoo-ai-api/internal/config"
)

// BackoffConfig 重投退避：Initial * Multiplier^n，封顶 Max
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 2}
}

// BackoffFromConfig 缺省或非法字段回落到默认值
func BackoffFromConfig(cfg config.BackoffConfig) BackoffConfig {
	b := DefaultBackoffConfig()
	if cfg.Initial > 0 {
		b.Initial = cfg.Initial
	}
	if cfg.Max > 0 {
		b.Max = cfg.Max
	}
	if cfg.Multiplier >= 1 {
		b.Multiplier = cfg.Multiplier
	}
	return b
}

// CalculateBackoff 第 retryCount 次重投前需要等待的时长
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	if retryCount <= 0 {
		return c.Initial
	}
	d := float64(c.Initial) * math.Pow(c.Multiplier, float64(retryCount))
	if d > float64(c.Max) || math.IsInf(d, 0) {
		return c.Max
	}
	return time.Duration(d)
}

package resilience

import (
	"time"

	"github.com/richxcame/claims-fraud/pkg/config"
)

// SettingsFor turns a dependency's breaker config into Settings, filling
// unset knobs with one-minute counting windows, a 30s open period and a
// 5-failure trip point.
func SettingsFor(name string, cfg config.BreakerConfig) Settings {
	s := Settings{
		Name:             name,
		Interval:         seconds(cfg.IntervalSeconds, time.Minute),
		Timeout:          seconds(cfg.TimeoutSeconds, 30*time.Second),
		FailureThreshold: 5,
		SuccessThreshold: 1,
	}
	if cfg.FailureThreshold > 0 {
		s.FailureThreshold = uint32(cfg.FailureThreshold)
	}
	if cfg.SuccessThreshold > 0 {
		s.SuccessThreshold = uint32(cfg.SuccessThreshold)
	}
	return s
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

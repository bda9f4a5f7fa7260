package resilience

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Breaker events counted in dependency_breaker_events_total.
const (
	eventCall     = "call"
	eventFailure  = "failure"
	eventRejected = "rejected"
)

var (
	dependencyBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dependency_breaker_state",
		Help: "Breaker state per dependency: 0 closed, 1 half-open, 2 open",
	}, []string{"breaker"})

	dependencyBreakerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dependency_breaker_events_total",
		Help: "Calls, failures and rejections seen by each dependency breaker",
	}, []string{"breaker", "event"})

	dependencyBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dependency_breaker_transitions_total",
		Help: "Breaker state transitions per dependency",
	}, []string{"breaker", "to"})

	anonymousBreakers atomic.Uint64
)

func breakerName(name string) string {
	if name == "" {
		return "breaker-" + strconv.FormatUint(anonymousBreakers.Add(1), 10)
	}
	return name
}

func observeState(name string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	dependencyBreakerState.WithLabelValues(name).Set(v)
}

func observeTransition(name string, to gobreaker.State) {
	dependencyBreakerTransitions.WithLabelValues(name, to.String()).Inc()
	observeState(name, to)
}

func observeEvent(name, event string) {
	dependencyBreakerEvents.WithLabelValues(name, event).Inc()
}

package logger

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	metricsOnce   sync.Once
	events        *prometheus.CounterVec //nolint:gochecknoglobals
	writeFailures prometheus.Counter     //nolint:gochecknoglobals
)

// levelCounter counts emitted log events per level.
// Operators alert on a rising error rate, e.g. repeated role_not_found denials.
type levelCounter struct{}

// Run implements zerolog.Hook.
func (levelCounter) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}

	events.WithLabelValues(level.String()).Inc()
}

// newLevelCounter registers the log metrics once per process, labelled with service.
func newLevelCounter(service string) levelCounter {
	metricsOnce.Do(func() {
		labels := prometheus.Labels{"service": service}

		events = promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "log_statements_total",
			Help:        "Log events written by the authorization service, by level.",
			ConstLabels: labels,
		}, []string{"level"})

		writeFailures = promauto.NewCounter(prometheus.CounterOpts{
			Name:        "log_write_failures_total",
			Help:        "Log events the authorization service failed to write.",
			ConstLabels: labels,
		})
	})

	return levelCounter{}
}

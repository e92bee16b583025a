// Package audit records authorization decisions for later inspection.
//
// Recording never blocks and never fails the request being authorized:
// entries are queued and written by a background worker. A full queue drops
// the entry, a failing sink is logged, both are counted.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/db/models"
)

const (
	defaultQueueSize = 1024
	sinkTimeout      = 10 * time.Second
)

// Sink names accepted in the configuration.
const (
	SinkDB      = "db"
	SinkLog     = "log"
	SinkDataDog = "datadog"
)

var (
	// ErrUnknownSink is returned for a sink name other than db, log or datadog.
	ErrUnknownSink = errors.New("unknown audit sink")
	// ErrDBNil is returned when the db sink is configured without a database.
	ErrDBNil = errors.New("database connection is nil")
)

var (
	metricsOnce  sync.Once
	dropped      prometheus.Counter     //nolint:gochecknoglobals
	sinkFailures *prometheus.CounterVec //nolint:gochecknoglobals
)

func initMetrics() {
	metricsOnce.Do(func() {
		dropped = promauto.NewCounter(prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Number of audit entries dropped because the queue was full or closed.",
		})
		sinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_sink_failures_total",
			Help: "Number of audit entries a sink failed to write, differentiated by sink.",
		}, []string{"sink"})
	})
}

// Sink stores audit entries.
type Sink interface {
	Name() string
	Write(ctx context.Context, e models.AuditEntry) error
}

// Recorder queues decisions and writes them to its sinks in the background.
// It implements auth.Recorder.
type Recorder struct {
	sinks  []Sink
	queue  chan models.AuditEntry
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	now    func() time.Time
}

// NewRecorder starts a recorder writing to sinks.
func NewRecorder(queueSize int, sinks ...Sink) *Recorder {
	initMetrics()

	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	r := &Recorder{
		sinks: sinks,
		queue: make(chan models.AuditEntry, queueSize),
		done:  make(chan struct{}),
		now:   time.Now,
	}

	go r.run()

	return r
}

// New builds the sinks named in cfg and starts a recorder.
func New(cfg config.Audit, db *gorm.DB) (*Recorder, error) {
	sinks := make([]Sink, 0, len(cfg.Sinks))

	for _, name := range cfg.Sinks {
		switch name {
		case SinkDB:
			if db == nil {
				return nil, ErrDBNil
			}

			sinks = append(sinks, NewDBSink(db))
		case SinkLog:
			sinks = append(sinks, NewLogSink())
		case SinkDataDog:
			sinks = append(sinks, NewDataDogSink(cfg.DataDog))
		default:
			return nil, ErrUnknownSink
		}
	}

	return NewRecorder(cfg.QueueSize, sinks...), nil
}

// Record implements auth.Recorder.
func (r *Recorder) Record(_ context.Context, userID string, req auth.Requirement, d auth.Decision) {
	e := models.AuditEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Requirement: req.String(),
		Allowed:     d.Allowed,
		Reason:      string(d.Reason),
		Detail:      d.Detail,
		CreatedAt:   r.now(),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		dropped.Inc()
		return
	}

	select {
	case r.queue <- e:
	default:
		dropped.Inc()
		log.Warn().Str("user_id", userID).Str("requirement", e.Requirement).Msg("audit queue full, entry dropped")
	}
}

// Close stops accepting entries and waits until the queued ones are written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)

	for e := range r.queue {
		for _, s := range r.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			err := s.Write(ctx, e)

			cancel()

			if err != nil {
				sinkFailures.WithLabelValues(s.Name()).Inc()
				log.Error().Err(err).Str("sink", s.Name()).Str("audit_id", e.ID).Msg("audit sink write failed")
			}
		}
	}
}

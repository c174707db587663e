package reviewdb

import "errors"
import "time"

import "github.com/prometheus/client_golang/prometheus"

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds the Prometheus collectors shared by the connection manager and the store.
type Metrics struct {
	operationDuration *prometheus.HistogramVec
	statementDuration *prometheus.HistogramVec
	sessionsOpened    prometheus.Counter
	sessionFailures   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with r. A nil Registerer leaves them
// unregistered. Collectors already registered with r by an earlier call are reused, so several
// stores can report through one registry.
func NewMetrics(r prometheus.Registerer) *Metrics {
	m := Metrics{}
	m.operationDuration = register(r, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reviewdb",
		Name:      "operation_duration_seconds",
		Help:      "Time spent in store and schema operations, including session setup.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"}))
	m.statementDuration = register(r, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reviewdb",
		Name:      "statement_duration_seconds",
		Help:      "Time spent executing single CQL statements against a live cluster.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"}))
	m.sessionsOpened = register[prometheus.Counter](r, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reviewdb",
		Name:      "sessions_opened_total",
		Help:      "Number of sessions opened.",
	}))
	m.sessionFailures = register[prometheus.Counter](r, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reviewdb",
		Name:      "session_failures_total",
		Help:      "Number of failed attempts to open a session.",
	}))
	return &m
}

// register adds c to r, or returns the equal collector r already holds. Any other registration
// error is a programming mistake and panics, as promauto does.
func register[T prometheus.Collector](r prometheus.Registerer, c T) T {
	if r == nil {
		return c
	}
	err := r.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(err)
}

func statusOf(err error) string {
	if err != nil {
		return statusError
	}
	return statusSuccess
}

// instrument times an operation. Use as: defer m.instrument("insert_one", time.Now(), &err).
func (m *Metrics) instrument(operation string, start time.Time, err *error) {
	m.operationDuration.WithLabelValues(operation, statusOf(*err)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeStatement(d time.Duration, err error) {
	m.statementDuration.WithLabelValues(statusOf(err)).Observe(d.Seconds())
}

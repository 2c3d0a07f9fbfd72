package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsPrefix = "gatling_"

const (
	nameLabel     = "name"
	groupLabel    = "group"
	statusLabel   = "status"
	scenarioLabel = "scenario"
)

// Store owns every series the bridge reports, registered on a private
// registry so a push ships exactly these series and nothing else. Each series
// is individually thread-safe; there is no cross-series atomicity, which is
// fine for Pushgateway semantics (counters are additive, gauges replace).
type Store struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	responseSeconds *prometheus.HistogramVec
	usersStarted    *prometheus.CounterVec
	usersFinished   *prometheus.CounterVec
	activeUsers     *prometheus.GaugeVec
	errorsTotal     *prometheus.CounterVec

	minResponseMs    prometheus.Gauge
	maxResponseMs    prometheus.Gauge
	meanResponseMs   prometheus.Gauge
	stddevResponseMs prometheus.Gauge
	heartbeat        prometheus.Gauge
}

// NewStore creates the full series set. Histogram buckets are given in
// milliseconds and converted to seconds. The bucket list is used as-is;
// unsorted or duplicated boundaries are the caller's responsibility.
func NewStore(bucketsMs []int) *Store {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	bucketsSec := make([]float64, 0, len(bucketsMs))
	for _, boundary := range bucketsMs {
		bucketsSec = append(bucketsSec, float64(boundary)/1000.0)
	}

	return &Store{
		registry: registry,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricsPrefix + "requests_total",
				Help: "Total requests",
			},
			[]string{nameLabel, groupLabel, statusLabel}),
		responseSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricsPrefix + "response_time_seconds",
				Help:    "Request duration",
				Buckets: bucketsSec,
			},
			[]string{nameLabel, groupLabel, statusLabel}),
		usersStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricsPrefix + "users_started_total",
				Help: "Users started",
			},
			[]string{scenarioLabel}),
		usersFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricsPrefix + "users_finished_total",
				Help: "Users finished",
			},
			[]string{scenarioLabel}),
		activeUsers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricsPrefix + "active_users",
				Help: "Active users",
			},
			[]string{scenarioLabel}),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricsPrefix + "errors_total",
				Help: "KO responses",
			},
			[]string{nameLabel, groupLabel}),
		minResponseMs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricsPrefix + "response_time_min_ms",
				Help: "Min response time",
			}),
		maxResponseMs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricsPrefix + "response_time_max_ms",
				Help: "Max response time",
			}),
		meanResponseMs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricsPrefix + "response_time_mean_ms",
				Help: "Mean response time",
			}),
		stddevResponseMs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricsPrefix + "response_time_stddev_ms",
				Help: "Stddev response time",
			}),
		heartbeat: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricsPrefix + "writer_heartbeat",
				Help: "Writer heartbeat",
			}),
	}
}

// Gatherer exposes the registry for snapshotting at push time.
func (s *Store) Gatherer() prometheus.Gatherer {
	return s.registry
}

func (s *Store) IncRequest(name string, group string, status string) {
	s.requestsTotal.WithLabelValues(name, group, status).Inc()
}

func (s *Store) ObserveResponseSeconds(name string, group string, status string, seconds float64) {
	s.responseSeconds.WithLabelValues(name, group, status).Observe(seconds)
}

func (s *Store) IncUsersStarted(scenario string) {
	s.usersStarted.WithLabelValues(scenario).Inc()
	s.activeUsers.WithLabelValues(scenario).Inc()
}

// IncUsersFinished decrements active users without clamping; a finish without
// a matching start reports a negative gauge.
func (s *Store) IncUsersFinished(scenario string) {
	s.usersFinished.WithLabelValues(scenario).Inc()
	s.activeUsers.WithLabelValues(scenario).Dec()
}

func (s *Store) IncError(name string, group string) {
	s.errorsTotal.WithLabelValues(name, group).Inc()
}

func (s *Store) SetResponseTimeGauges(minMs float64, maxMs float64, meanMs float64, stddevMs float64) {
	s.minResponseMs.Set(minMs)
	s.maxResponseMs.Set(maxMs)
	s.meanResponseMs.Set(meanMs)
	s.stddevResponseMs.Set(stddevMs)
}

func (s *Store) SetHeartbeat(epochSeconds float64) {
	s.heartbeat.Set(epochSeconds)
}

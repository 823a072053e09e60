// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ActiveGames      prometheus.Gauge
	ConnectedPlayers prometheus.Gauge
	Operations       *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	CountdownsArmed  prometheus.Counter
	GamesStarted     prometheus.Counter
	RoundFailures    prometheus.Counter
	GamesExpired     prometheus.Counter
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Number of game instances in the registry",
		}),
		ConnectedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_players",
			Help:      "Number of players with a live connection to a game",
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Client operations by name and result code",
		}, []string{"operation", "result"}),
		OperationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Client operation latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}, []string{"operation"}),
		CountdownsArmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "countdowns_armed_total",
			Help:      "Waiting to Starting transitions",
		}),
		GamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Starting to Started transitions",
		}),
		RoundFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "round_failures_total",
			Help:      "Round generations that failed",
		}),
		GamesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_expired_total",
			Help:      "Game instances evicted for inactivity",
		}),
	}

	reg.MustRegister(
		m.ActiveGames,
		m.ConnectedPlayers,
		m.Operations,
		m.OperationLatency,
		m.CountdownsArmed,
		m.GamesStarted,
		m.RoundFailures,
		m.GamesExpired,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string, reg prometheus.Registerer) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		startTime: time.Now(),
	}
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

var publishOnce sync.Once

// ExpvarHandler publishes uptime and request counters and returns the
// /debug/vars handler. expvar names are process-global, so only the first
// monitor is published.
func (m *Monitor) ExpvarHandler() http.Handler {
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})
	return expvar.Handler()
}

func (m *Monitor) IncConnectedPlayers() {
	m.metrics.ConnectedPlayers.Inc()
}

func (m *Monitor) DecConnectedPlayers() {
	m.metrics.ConnectedPlayers.Dec()
}

// SubConnectedPlayers drops n players at once, e.g. when a game is removed.
func (m *Monitor) SubConnectedPlayers(n int) {
	m.metrics.ConnectedPlayers.Sub(float64(n))
}

func (m *Monitor) SetActiveGames(count int) {
	m.metrics.ActiveGames.Set(float64(count))
}

// ObserveOperation counts one client operation and its latency.
func (m *Monitor) ObserveOperation(operation, result string, duration time.Duration) {
	m.metrics.Operations.WithLabelValues(operation, result).Inc()
	m.metrics.OperationLatency.WithLabelValues(operation).Observe(duration.Seconds())
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) IncCountdownsArmed() {
	m.metrics.CountdownsArmed.Inc()
}

func (m *Monitor) IncGamesStarted() {
	m.metrics.GamesStarted.Inc()
}

func (m *Monitor) IncRoundFailures() {
	m.metrics.RoundFailures.Inc()
}

func (m *Monitor) IncGamesExpired() {
	m.metrics.GamesExpired.Inc()
}

// monitor/monitor.go
package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/walkandtalk/logger"
)

type Metrics struct {
	OnlinePlayers   prometheus.Gauge
	PlayersTimedOut prometheus.Counter
	Calls           *prometheus.CounterVec
	CallErrors      *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec
	TickDuration    prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of players currently tracked",
		}),
		PlayersTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_timed_out_total",
			Help:      "Players removed by the liveness sweep",
		}),
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Remote procedure calls handled",
		}, []string{"procedure"}),
		CallErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_errors_total",
			Help:      "Remote procedure calls rejected",
		}, []string{"procedure"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Broadcast events emitted by the game loop",
		}, []string{"topic"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Broadcast events that failed for at least one subscriber",
		}, []string{"topic"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent in one game loop tick",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
	}
}

func (m *Metrics) all() []prometheus.Collector {
	return []prometheus.Collector{
		m.OnlinePlayers,
		m.PlayersTimedOut,
		m.Calls,
		m.CallErrors,
		m.EventsPublished,
		m.PublishFailures,
		m.TickDuration,
	}
}

// Monitor records game metrics. A nil *Monitor is valid and records nothing.
type Monitor struct {
	metrics  *Metrics
	registry *prometheus.Registry
}

// NewMonitor registers a fresh metric set, plus Go and process collectors,
// on its own registry.
func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:  NewMetrics(namespace),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.metrics.all()...)
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Monitor) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Log.Infof("Metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *Monitor) SetOnlinePlayers(count int) {
	if m == nil {
		return
	}
	m.metrics.OnlinePlayers.Set(float64(count))
}

func (m *Monitor) AddTimedOut(count int) {
	if m == nil {
		return
	}
	m.metrics.PlayersTimedOut.Add(float64(count))
}

func (m *Monitor) IncCall(procedure string) {
	if m == nil {
		return
	}
	m.metrics.Calls.WithLabelValues(procedure).Inc()
}

func (m *Monitor) IncCallError(procedure string) {
	if m == nil {
		return
	}
	m.metrics.CallErrors.WithLabelValues(procedure).Inc()
}

func (m *Monitor) IncPublished(topic string) {
	if m == nil {
		return
	}
	m.metrics.EventsPublished.WithLabelValues(topic).Inc()
}

func (m *Monitor) IncPublishFailure(topic string) {
	if m == nil {
		return
	}
	m.metrics.PublishFailures.WithLabelValues(topic).Inc()
}

func (m *Monitor) ObserveTick(duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.TickDuration.Observe(duration.Seconds())
}

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the Prometheus collectors of the engagement backend
type Metrics struct {
	Toggles        *prometheus.CounterVec
	ToggleDuration *prometheus.HistogramVec
	NotifyFailures *prometheus.CounterVec
	registry       *prometheus.Registry
}

// New registers all collectors on a fresh registry so several instances
// can coexist in one process.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Toggles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engagement",
				Name:      "toggles_total",
				Help:      "Toggles handled, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		ToggleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engagement",
				Name:      "toggle_duration_seconds",
				Help:      "Toggle latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		NotifyFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notify",
				Name:      "failures_total",
				Help:      "Notification emissions that failed, by sink",
			},
			[]string{"sink"},
		),
		registry: reg,
	}
}

// ObserveToggle records one finished toggle
func (m *Metrics) ObserveToggle(kind, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Toggles.WithLabelValues(kind, outcome).Inc()
	m.ToggleDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// NotifyFailed counts a failed emission on the named sink
func (m *Metrics) NotifyFailed(sink string) {
	if m == nil {
		return
	}
	m.NotifyFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

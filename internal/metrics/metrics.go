// Package metrics exposes Prometheus counters for the live tick driver.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// Metrics holds the collectors registered for one process.
type Metrics struct {
	ticksTotal   *prometheus.CounterVec
	closesTotal  *prometheus.CounterVec
	tickErrors   prometheus.Counter
	tickDuration prometheus.Histogram
}

// New registers the collectors on a fresh registry and returns both.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		ticksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_ticks_total",
			Help: "Ticks processed, labelled by resulting lifecycle status.",
		}, []string{"symbol", "status"}),
		closesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_closes_total",
			Help: "Signals closed, labelled by close reason.",
		}, []string{"symbol", "reason"}),
		tickErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_tick_errors_total",
			Help: "Hard tick failures.",
		}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalbot_tick_duration_seconds",
			Help:    "Wall time of one tick, including the price fetch.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	return m, reg
}

// ObserveTick records a completed tick and its outcome.
func (m *Metrics) ObserveTick(res *domain.TickResult, took time.Duration) {
	if res == nil {
		return
	}
	m.ticksTotal.WithLabelValues(res.Symbol, string(res.Status)).Inc()
	if res.Status == domain.TickClosed {
		m.closesTotal.WithLabelValues(res.Symbol, string(res.CloseReason)).Inc()
	}
	m.tickDuration.Observe(took.Seconds())
}

// ObserveTickError records a hard tick failure.
func (m *Metrics) ObserveTickError() {
	m.tickErrors.Inc()
}

// Serve exposes the registry on /metrics until the context is cancelled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, logger ports.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Metrics endpoint listening", map[string]interface{}{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

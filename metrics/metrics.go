// Package metrics implements the observability surface (C13): a set of
// Prometheus collectors updated by the sender/receiver/predictor, served
// over a small fasthttp server at /metrics and /healthz.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/feras-hamam/adastream/xerr"
)

// Registry bundles every collector this system exposes.
type Registry struct {
	reg *prometheus.Registry

	BytesSent          *prometheus.CounterVec // labels: stream
	CurrentThreshold   *prometheus.GaugeVec    // labels: step
	LastCongestionPct  prometheus.Gauge
	StepsCompleted     prometheus.Counter
	ProcessorDuration  prometheus.Histogram
	ArchiveFailures    prometheus.Counter
}

// New builds and registers every collector.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		BytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adastream",
			Name:      "bytes_sent_total",
			Help:      "Bytes sent per stream.",
		}, []string{"stream"}),
		CurrentThreshold: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "adastream",
			Name:      "progress_threshold",
			Help:      "Current augmentation progress threshold per step.",
		}, []string{"step"}),
		LastCongestionPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "adastream",
			Name:      "last_congestion_percent",
			Help:      "Most recently predicted congestion percentage.",
		}),
		StepsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adastream",
			Name:      "steps_completed_total",
			Help:      "Steps released by the step barrier to the processor.",
		}),
		ProcessorDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adastream",
			Name:      "processor_duration_seconds",
			Help:      "Wall-clock duration of the external processor invocation.",
			Buckets:   prometheus.DefBuckets,
		}),
		ArchiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adastream",
			Name:      "archive_failures_total",
			Help:      "Archival attempts that failed (non-fatal).",
		}),
	}
	reg.MustRegister(r.BytesSent, r.CurrentThreshold, r.LastCongestionPct, r.StepsCompleted, r.ProcessorDuration, r.ArchiveFailures)
	return r
}

// Server serves /metrics and /healthz over fasthttp.
type Server struct {
	addr string
	reg  *Registry
	srv  *fasthttp.Server
}

func NewServer(addr string, reg *Registry) *Server {
	s := &Server{addr: addr, reg: reg}
	promHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg.reg, promhttp.HandlerOpts{}))
	s.srv = &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			switch string(ctx.Path()) {
			case "/metrics":
				promHandler(ctx)
			case "/healthz":
				ctx.SetStatusCode(fasthttp.StatusOK)
				ctx.SetBodyString("ok")
			default:
				ctx.SetStatusCode(fasthttp.StatusNotFound)
			}
		},
	}
	return s
}

// ListenAndServe blocks serving the registry until the process exits or
// the listener fails.
func (s *Server) ListenAndServe() error {
	if err := s.srv.ListenAndServe(s.addr); err != nil {
		return xerr.Wrap(xerr.KindTransportInit, err, "metrics server on %s", s.addr)
	}
	return nil
}

func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

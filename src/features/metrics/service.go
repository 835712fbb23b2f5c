package metrics

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/contre95/plexmirror/src/features/config"
	"github.com/contre95/plexmirror/src/features/downloading"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "plexmirror"

// Service turns run reports into Prometheus metrics and exports them for the
// node exporter textfile collector.
type Service struct {
	logger   *slog.Logger
	textfile string
	registry *prometheus.Registry

	items           *prometheus.CounterVec
	targets         *prometheus.CounterVec
	bytes           prometheus.Counter
	lastRun         prometheus.Gauge
	lastRunDuration prometheus.Gauge
}

// NewService creates a metrics service. An empty textfile disables Flush.
func NewService(cfg config.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		logger:   logger,
		textfile: cfg.Textfile,
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Processed tracks, images and manifests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		targets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "targets_total",
			Help:      "Processed download targets by kind and result.",
		}, []string{"kind", "result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transferred_bytes_total",
			Help:      "Bytes written by transfers.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		lastRunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last run.",
		}),
	}
	s.registry.MustRegister(s.items, s.targets, s.bytes, s.lastRun, s.lastRunDuration)
	return s
}

// Observe adds the outcomes of report to the counters.
func (s *Service) Observe(report *downloading.RunReport) {
	if report == nil {
		return
	}
	for _, t := range report.Targets {
		result := "ok"
		if t.Failed() {
			result = "failed"
		}
		s.targets.WithLabelValues(string(t.Target.Kind), result).Inc()
		for _, item := range t.Items {
			s.items.WithLabelValues(string(item.Kind), string(item.Outcome)).Inc()
			if item.Outcome == downloading.OutcomeTransferred && item.Size > 0 {
				s.bytes.Add(float64(item.Size))
			}
		}
	}
	if !report.FinishedAt.IsZero() {
		s.lastRun.Set(float64(report.FinishedAt.Unix()))
		s.lastRunDuration.Set(report.Duration().Seconds())
	}
}

// Flush writes all metrics to the configured textfile.
func (s *Service) Flush() error {
	if s.textfile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.textfile), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(s.textfile, s.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	s.logger.Debug("Metrics written", "path", s.textfile)
	return nil
}

// Registry exposes the underlying registry.
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

package report

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetrics writes s as a Prometheus text file for the node exporter's
// textfile collector. The file is replaced atomically.
func WriteMetrics(path string, s *Summary, now time.Time) error {
	reg := prometheus.NewRegistry()

	items := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jobboss_update_items",
		Help: "Items processed by the last inventory update run, by outcome.",
	}, []string{"outcome"})
	net := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobboss_update_net_quantity",
		Help: "Net quantity applied by the last run (successes only).",
	})
	fatal := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobboss_update_fatal",
		Help: "1 if the last run aborted on a fatal precondition.",
	})
	last := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobboss_update_last_run_timestamp_seconds",
		Help: "Unix time the last run finished.",
	})
	reg.MustRegister(items, net, fatal, last)

	items.WithLabelValues("succeeded").Set(float64(s.Succeeded))
	items.WithLabelValues("failed").Set(float64(s.Failed))
	net.Set(float64(s.NetApplied))
	if s.Fatal != nil {
		fatal.Set(1)
	}
	last.Set(float64(now.Unix()))

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

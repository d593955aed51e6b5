package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/ipfs-force-community/metrics"
	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats/view"
)

var log = logging.Logger("metrics")

// GaugeInterval is how often bridge connections and wallet views are counted.
var GaugeInterval = time.Minute

// SetupMetrics starts the configured exporter, marks the api as up and keeps the connection
// gauges current until ctx ends. Nothing is exported when metrics are disabled.
func SetupMetrics(ctx context.Context, cfg *metrics.MetricsConfig, api ConnectionLister) error {
	log.Infow("setup metrics", "enabled", cfg.Enabled, "exporter", cfg.Exporter.Type)
	if !cfg.Enabled {
		return nil
	}

	if err := view.Register(views...); err != nil {
		return fmt.Errorf("cannot register the view: %w", err)
	}
	if err := startExporter(ctx, cfg); err != nil {
		return err
	}

	ApiState.Set(ctx, 1)
	go recordMetricsLoop(ctx, api, GaugeInterval)
	return nil
}

func startExporter(ctx context.Context, cfg *metrics.MetricsConfig) error {
	switch cfg.Exporter.Type {
	case metrics.ETPrometheus:
		log.Infof("prometheus exporter on %s, namespace %s",
			cfg.Exporter.Prometheus.EndPoint, cfg.Exporter.Prometheus.Namespace)
		go func() {
			if err := metrics.RegisterPrometheusExporter(ctx, cfg.Exporter.Prometheus); err != nil {
				log.Errorf("prometheus exporter stopped: %v", err)
				return
			}
			log.Info("prometheus exporter server graceful shutdown successful")
		}()
		return nil
	case metrics.ETGraphite:
		log.Infof("graphite exporter to %s:%d, namespace %s",
			cfg.Exporter.Graphite.Host, cfg.Exporter.Graphite.Port, cfg.Exporter.Graphite.Namespace)
		if err := metrics.RegisterGraphiteExporter(ctx, cfg.Exporter.Graphite); err != nil {
			return fmt.Errorf("register graphite exporter: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("invalid metrics exporter type %q", cfg.Exporter.Type)
	}
}

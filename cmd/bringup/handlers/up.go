package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imamik/bringup/internal/bringup"
	"github.com/imamik/bringup/internal/config"
	"github.com/imamik/bringup/internal/orchestration"
	"github.com/imamik/bringup/internal/platform/cm"
	"github.com/imamik/bringup/internal/report"
)

// Reconciler interface for testing - matches orchestration.Reconciler.
type Reconciler interface {
	Reconcile(ctx context.Context, opts ...bringup.RunnerOption) (*bringup.Run, error)
}

// newReconciler creates the workflow reconciler.
var newReconciler = func(mgmt orchestration.Management, cfg *config.Config, opts ...orchestration.Option) (Reconciler, error) {
	return orchestration.NewReconciler(mgmt, cfg, opts...)
}

// UpOptions are the flags of the up command.
type UpOptions struct {
	ConfigPath string
	// MetricsAddr serves Prometheus metrics while the run is in flight.
	MetricsAddr string
	// ReportPath writes the run report to a file; the format follows the
	// extension unless ReportFormat is set.
	ReportPath   string
	ReportFormat string
	// ReportBucket uploads the run report to S3-compatible storage.
	ReportBucket string
	ReportPrefix string
}

// Up brings a cluster up.
//
// This function orchestrates the complete bring-up:
//  1. Loads and validates the configuration
//  2. Connects to the management API and the node transport
//  3. Runs the workflow, printing a summary when it ends
//  4. Writes and uploads the run report when requested
//
// The report is written even when the run fails; the run error is returned
// after it.
func Up(ctx context.Context, opts UpOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	timeouts := loadTimeouts()
	logger := newLogger()

	var apiMetrics *cm.Metrics
	var runMetrics *bringup.Metrics
	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		apiMetrics = cm.NewMetrics(reg)
		runMetrics = bringup.NewMetrics(reg)
		stop, err := serveMetrics(opts.MetricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	mgmt, err := newManagementClient(cfg, logger, apiMetrics)
	if err != nil {
		return fmt.Errorf("failed to create management client: %w", err)
	}

	nodes, health, err := newNodeTransport(cfg, timeouts, logger)
	if err != nil {
		return fmt.Errorf("failed to create %s node transport: %w", cfg.Transport.Type, err)
	}
	defer func() {
		if err := nodes.Close(); err != nil {
			logger.Error(err, "Failed to close node transport")
		}
	}()

	reconcilerOpts := []orchestration.Option{
		orchestration.WithNodes(nodes),
		orchestration.WithNodeCommandTimeout(timeouts.NodeCommand),
		orchestration.WithLogger(logger.WithName("bringup")),
	}
	if health != nil {
		reconcilerOpts = append(reconcilerOpts, orchestration.WithHealthChecker(health))
	}
	reconciler, err := newReconciler(mgmt, cfg, reconcilerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create reconciler: %w", err)
	}

	runOpts := []bringup.RunnerOption{bringup.WithObserver(bringup.NewLogObserver(logger.WithName("events")))}
	if runMetrics != nil {
		runOpts = append(runOpts, bringup.WithMetrics(runMetrics))
	}
	run, runErr := reconciler.Reconcile(ctx, runOpts...)
	if run == nil {
		return runErr
	}

	doc := report.New(cfg.Cluster.Name, run)
	report.NewRenderer(colorOutput()).Render(stdout, doc)

	if err := saveReport(ctx, doc, opts); err != nil {
		if runErr == nil {
			return err
		}
		logger.Error(err, "Failed to save report")
	}

	if runErr != nil {
		return fmt.Errorf("bring-up of cluster %s failed (%s): %w", cfg.Cluster.Name, bringup.Classify(runErr), runErr)
	}
	return nil
}

// saveReport writes the report to a file and uploads it, as requested.
func saveReport(ctx context.Context, doc *report.Document, opts UpOptions) error {
	if opts.ReportPath != "" {
		format := report.FormatFor(opts.ReportPath)
		if opts.ReportFormat != "" {
			f, err := report.ParseFormat(opts.ReportFormat)
			if err != nil {
				return err
			}
			format = f
		}
		data, err := report.Encode(doc, format)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.ReportPath, data, 0600); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(stdout, "Report written to %s\n", opts.ReportPath)
	}

	if opts.ReportBucket != "" {
		store, err := openStore(ctx, opts.ReportBucket, opts.ReportPrefix)
		if err != nil {
			return err
		}
		key, err := store.Upload(ctx, doc, report.FormatJSON)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Report uploaded to s3://%s/%s\n", opts.ReportBucket, key)
	}
	return nil
}

func openStore(ctx context.Context, bucket, prefix string) (*report.Store, error) {
	objects, err := newObjectStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return report.NewStore(objects, bucket, prefix)
}

// serveMetrics serves reg on addr until the returned stop function is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger logr.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Metrics server stopped")
		}
	}()
	logger.Info("Serving metrics", "address", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

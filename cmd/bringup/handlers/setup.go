// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/imamik/bringup/internal/config"
	"github.com/imamik/bringup/internal/orchestration"
	"github.com/imamik/bringup/internal/platform/cm"
	"github.com/imamik/bringup/internal/platform/docker"
	"github.com/imamik/bringup/internal/platform/node"
	"github.com/imamik/bringup/internal/platform/s3"
	"github.com/imamik/bringup/internal/platform/ssh"
	"github.com/imamik/bringup/internal/report"
)

const defaultS3Region = "us-east-1"

var _ report.ObjectStore = (*s3.Client)(nil)

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads, defaults and validates a config file.
	loadConfigFile = config.LoadFile

	// loadTimeouts reads timeout overrides from the environment.
	loadTimeouts = config.LoadTimeouts

	// getenv reads secrets from the environment.
	getenv = os.Getenv

	// readFile reads the SSH private key.
	readFile = os.ReadFile

	// newManagementClient creates the management API client.
	newManagementClient = func(cfg *config.Config, logger logr.Logger, metrics *cm.Metrics) (orchestration.Management, error) {
		opts := []cm.ClientOption{
			cm.WithCredentials(cfg.Manager.Username, cfg.Manager.Password),
			cm.WithAPIVersion(cfg.Manager.APIVersion),
			cm.WithCluster(cfg.Cluster.Name),
			cm.WithRequestTimeout(cfg.Retry.RequestTimeout),
			cm.WithRetry(max(cfg.Retry.MaxAttempts-1, 0), cfg.Retry.InitialDelay),
			cm.WithLogger(logger.WithName("cm")),
			cm.WithMetrics(metrics),
		}
		if cfg.Manager.InsecureSkipVerify {
			opts = append(opts, cm.WithInsecureSkipVerify())
		}
		return cm.NewClient(cfg.Manager.URL, opts...)
	}

	// newNodeTransport creates the node transport selected by the config.
	// The health checker is nil unless the transport can report it.
	newNodeTransport = defaultNodeTransport

	// newObjectStore creates the report store client from the environment.
	newObjectStore = func(ctx context.Context) (report.ObjectStore, error) {
		region := getenv(config.EnvS3Region)
		if region == "" {
			region = defaultS3Region
		}
		endpoint := getenv(config.EnvS3Endpoint)
		return s3.NewClient(ctx, s3.Options{
			Endpoint:  endpoint,
			Region:    region,
			AccessKey: getenv(config.EnvS3AccessKey),
			SecretKey: getenv(config.EnvS3SecretKey),
			PathStyle: endpoint != "",
		})
	}

	// stdout receives command output.
	stdout io.Writer = os.Stdout

	// stderr receives logs.
	stderr io.Writer = os.Stderr

	// colorOutput reports whether stdout renders colors.
	colorOutput = func() bool { return report.IsTerminal(os.Stdout) }
)

// SetVerbosity sets the log verbosity. Operation ticks are logged at 1 and
// management API requests at 2.
func SetVerbosity(v int) {
	stdr.SetVerbosity(v)
}

func newLogger() logr.Logger {
	return stdr.New(log.New(stderr, "", log.LstdFlags))
}

// loadConfig loads the config at path.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file is required (use --config)")
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

func defaultNodeTransport(cfg *config.Config, timeouts *config.Timeouts, logger logr.Logger) (node.Transport, orchestration.HealthChecker, error) {
	switch cfg.Transport.Type {
	case config.TransportDocker:
		t, err := docker.New(cfg.Transport.Docker.Host, docker.WithLogger(logger.WithName("docker")))
		if err != nil {
			return nil, nil, err
		}
		return t, t, nil

	case config.TransportSSH:
		key, err := readFile(cfg.Transport.SSH.PrivateKeyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read ssh private key: %w", err)
		}
		t, err := ssh.New(&ssh.Config{
			Port:        cfg.Transport.SSH.Port,
			User:        cfg.Transport.SSH.User,
			PrivateKey:  key,
			DialTimeout: timeouts.DialTimeout,
			MaxRetries:  timeouts.RetryMaxAttempts,
			RetryDelay:  timeouts.RetryInitialDelay,
			Logger:      logger.WithName("ssh"),
		})
		if err != nil {
			return nil, nil, err
		}
		return t, nil, nil

	default:
		return node.None{}, nil, nil
	}
}

package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/go-logr/logr"

	"github.com/imamik/bringup/internal/platform/node"
)

// Container health states reported by Docker.
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
	HealthStarting  = "starting"
	HealthNone      = "none"
)

// Transport runs commands in node containers.
type Transport struct {
	api    client.APIClient
	logger logr.Logger
}

var _ node.Transport = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger. Commands are logged at V(1).
func WithLogger(l logr.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

// WithAPIClient uses an existing Docker API client.
func WithAPIClient(api client.APIClient) Option {
	return func(t *Transport) {
		t.api = api
	}
}

// New connects to the Docker daemon at host, or the environment's default
// daemon when host is empty.
func New(host string, opts ...Option) (*Transport, error) {
	t := &Transport{logger: logr.Discard()}
	for _, opt := range opts {
		opt(t)
	}
	if t.api != nil {
		return t, nil
	}

	clientOpts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		clientOpts = append(clientOpts, client.WithHost(host))
	}
	api, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	t.api = api
	return t, nil
}

// Exec implements node.Transport.
func (t *Transport) Exec(ctx context.Context, target node.Target, command string) (string, error) {
	start := time.Now()
	execResp, err := t.api.ContainerExecCreate(ctx, target.Container, container.ExecOptions{
		Cmd:          []string{"/bin/sh", "-c", command},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create exec in %s: %w", target.Container, err)
	}

	resp, err := t.api.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{Tty: false})
	if err != nil {
		return "", fmt.Errorf("failed to attach to exec in %s: %w", target.Container, err)
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, resp.Reader); err != nil {
		return "", fmt.Errorf("failed to read exec output from %s: %w", target.Container, err)
	}

	inspect, err := t.api.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return "", fmt.Errorf("failed to inspect exec in %s: %w", target.Container, err)
	}
	t.logger.V(1).Info("Exec", "node", target.Name, "command", command,
		"exitCode", inspect.ExitCode, "elapsed", time.Since(start).Round(time.Millisecond))

	if inspect.ExitCode != 0 {
		return stdout.String(), &node.ExitError{
			Target:   target.Name,
			Command:  command,
			ExitCode: inspect.ExitCode,
			Stderr:   stderr.String(),
		}
	}
	return stdout.String(), nil
}

// ReadFile implements node.Transport.
func (t *Transport) ReadFile(ctx context.Context, target node.Target, filePath string) ([]byte, error) {
	reader, _, err := t.api.CopyFromContainer(ctx, target.Container, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to copy %s from %s: %w", filePath, target.Container, err)
	}
	defer func() { _ = reader.Close() }()

	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s not found in archive from %s", filePath, target.Container)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive from %s: %w", target.Container, err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from %s: %w", filePath, target.Container, err)
		}
		return data, nil
	}
}

// WriteFile implements node.Transport.
func (t *Transport) WriteFile(ctx context.Context, target node.Target, filePath string, data []byte) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	header := &tar.Header{
		Name:    path.Base(filePath),
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write archive header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}

	err := t.api.CopyToContainer(ctx, target.Container, path.Dir(filePath), &buf, container.CopyToContainerOptions{
		AllowOverwriteDirWithFile: true,
	})
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", filePath, target.Container, err)
	}
	return nil
}

// Health returns the health status of a container's health check, or
// HealthNone when the container defines none.
func (t *Transport) Health(ctx context.Context, containerName string) (string, error) {
	resp, err := t.api.ContainerInspect(ctx, containerName)
	if err != nil {
		return "", fmt.Errorf("failed to inspect %s: %w", containerName, err)
	}
	if resp.ContainerJSONBase == nil || resp.State == nil || resp.State.Health == nil {
		return HealthNone, nil
	}
	return strings.ToLower(resp.State.Health.Status), nil
}

// Close implements node.Transport.
func (t *Transport) Close() error {
	return t.api.Close()
}

package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/imamik/bringup/internal/platform/node"
	"github.com/imamik/bringup/internal/util/retry"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultMaxRetries  = 5
	defaultRetryDelay  = time.Second
	defaultMaxDelay    = 10 * time.Second
)

// Config holds settings shared by all nodes.
type Config struct {
	Port       int
	User       string
	PrivateKey []byte

	// DialTimeout bounds establishing the TCP connection.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// MaxRetries is the number of dial retries.
	// If zero, defaultMaxRetries is used.
	MaxRetries int

	// RetryDelay is the initial delay between dial retries.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used.
	HostKeyCallback ssh.HostKeyCallback

	Logger logr.Logger
}

// Transport implements node.Transport over SSH. Connections are opened on
// first use and reused until Close.
type Transport struct {
	config *Config
	signer ssh.Signer

	mu    sync.Mutex
	conns map[string]*ssh.Client
}

var _ node.Transport = (*Transport)(nil)

// New validates cfg and parses the private key.
func New(cfg *Config) (*Transport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	// Copy config to avoid mutating caller's struct
	c := *cfg
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.HostKeyCallback == nil {
		c.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // nodes are recreated with each cluster
	}
	if c.Logger.GetSink() == nil {
		c.Logger = logr.Discard()
	}

	signer, err := ssh.ParsePrivateKey(c.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Transport{config: &c, signer: signer, conns: map[string]*ssh.Client{}}, nil
}

// Exec implements node.Transport.
func (t *Transport) Exec(ctx context.Context, target node.Target, command string) (string, error) {
	client, err := t.connect(ctx, target)
	if err != nil {
		return "", err
	}

	session, err := client.NewSession()
	if err != nil {
		t.drop(target)
		return "", fmt.Errorf("failed to create SSH session on %s: %w", target.Name, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	case err = <-done:
	}
	t.config.Logger.V(1).Info("Exec", "node", target.Name, "command", command, "elapsed", time.Since(start).Round(time.Millisecond))

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), &node.ExitError{
			Target:   target.Name,
			Command:  command,
			ExitCode: exitErr.ExitStatus(),
			Stderr:   stderr.String(),
		}
	}
	if err != nil {
		return stdout.String(), fmt.Errorf("command failed on %s: %w", target.Name, err)
	}
	return stdout.String(), nil
}

// ReadFile implements node.Transport.
func (t *Transport) ReadFile(ctx context.Context, target node.Target, filePath string) ([]byte, error) {
	var data []byte
	err := t.withSFTP(ctx, target, func(c *sftp.Client) error {
		f, err := c.Open(filePath)
		if err != nil {
			return fmt.Errorf("failed to open %s on %s: %w", filePath, target.Name, err)
		}
		defer func() { _ = f.Close() }()
		data, err = io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("failed to read %s on %s: %w", filePath, target.Name, err)
		}
		return nil
	})
	return data, err
}

// WriteFile implements node.Transport.
func (t *Transport) WriteFile(ctx context.Context, target node.Target, filePath string, data []byte) error {
	return t.withSFTP(ctx, target, func(c *sftp.Client) error {
		if err := c.MkdirAll(path.Dir(filePath)); err != nil {
			return fmt.Errorf("failed to create %s on %s: %w", path.Dir(filePath), target.Name, err)
		}
		f, err := c.Create(filePath)
		if err != nil {
			return fmt.Errorf("failed to create %s on %s: %w", filePath, target.Name, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write %s on %s: %w", filePath, target.Name, err)
		}
		return f.Close()
	})
}

// Close implements node.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for addr, c := range t.conns {
		if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
		}
		delete(t.conns, addr)
	}
	return errors.Join(errs...)
}

func (t *Transport) withSFTP(ctx context.Context, target node.Target, fn func(*sftp.Client) error) error {
	client, err := t.connect(ctx, target)
	if err != nil {
		return err
	}
	sc, err := sftp.NewClient(client)
	if err != nil {
		t.drop(target)
		return fmt.Errorf("failed to start SFTP on %s: %w", target.Name, err)
	}
	defer func() { _ = sc.Close() }()
	return fn(sc)
}

func (t *Transport) address(target node.Target) string {
	host := target.Address
	if host == "" {
		host = target.Name
	}
	return net.JoinHostPort(host, strconv.Itoa(t.config.Port))
}

// connect returns a cached connection or dials one with retries.
func (t *Transport) connect(ctx context.Context, target node.Target) (*ssh.Client, error) {
	addr := t.address(target)

	t.mu.Lock()
	c, ok := t.conns[addr]
	t.mu.Unlock()
	if ok {
		return c, nil
	}

	cfg := &ssh.ClientConfig{
		User:            t.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(t.signer)},
		HostKeyCallback: t.config.HostKeyCallback,
		Timeout:         t.config.DialTimeout,
	}

	var client *ssh.Client
	err := retry.Do(ctx, func() error {
		if err := ctx.Err(); err != nil {
			return retry.Fatal(err)
		}
		var dialErr error
		client, dialErr = dial(ctx, addr, cfg)
		return dialErr
	},
		retry.WithMaxRetries(t.config.MaxRetries),
		retry.WithInitialDelay(t.config.RetryDelay),
		retry.WithMaxDelay(defaultMaxDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.conns[addr]; ok {
		_ = client.Close()
		return existing, nil
	}
	t.conns[addr] = client
	return client, nil
}

// drop forgets a connection that failed mid-use.
func (t *Transport) drop(target node.Target) {
	addr := t.address(target)
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.conns[addr]; ok {
		_ = c.Close()
		delete(t.conns, addr)
	}
}

func dial(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

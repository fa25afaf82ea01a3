package cm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/bringup/internal/util/retry"
)

const defaultAPIVersion = "v14"

// Client talks to one management server about one cluster.
type Client struct {
	server     *url.URL
	apiVersion string
	cluster    string
	username   string
	password   string

	httpClient     *http.Client
	requestTimeout time.Duration
	retryOpts      []retry.Option
	logger         logr.Logger
	metrics        *Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCredentials sets the basic-auth credentials.
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithAPIVersion sets the API version path segment, e.g. "v14".
func WithAPIVersion(v string) ClientOption {
	return func(c *Client) {
		c.apiVersion = v
	}
}

// WithCluster sets the cluster all cluster-scoped calls refer to.
func WithCluster(name string) ClientOption {
	return func(c *Client) {
		c.cluster = name
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify() ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				// #nosec G402
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}
}

// WithRequestTimeout bounds every single request.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// WithRetry sets the retry policy for idempotent reads.
func WithRetry(maxRetries int, initialDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryOpts = []retry.Option{
			retry.WithMaxRetries(maxRetries),
			retry.WithInitialDelay(initialDelay),
		}
	}
}

// WithLogger sets the logger. Requests are logged at V(2).
func WithLogger(l logr.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics records API call metrics.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient returns a client for the management server at serverURL,
// e.g. "http://node-1.cluster:7180".
func NewClient(serverURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: scheme and host are required", serverURL)
	}

	c := &Client{
		server:         u,
		apiVersion:     defaultAPIVersion,
		cluster:        "cluster",
		httpClient:     http.DefaultClient,
		requestTimeout: 30 * time.Second,
		logger:         logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Cluster returns the cluster name the client is bound to.
func (c *Client) Cluster() string { return c.cluster }

// apiPath builds "/api/<version>/<segments...>" with each segment escaped.
func (c *Client) apiPath(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/api/" + c.apiVersion + "/" + strings.Join(escaped, "/")
}

func (c *Client) clusterPath(segments ...string) string {
	return c.apiPath(append([]string{"clusters", c.cluster}, segments...)...)
}

// do performs one request. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded JSON response.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, path, query, body, out)
	c.metrics.record(op, err, time.Since(start))
	c.logger.V(2).Info("API call", "method", method, "path", path, "elapsed", time.Since(start).Round(time.Millisecond), "error", errString(err))
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	u := *c.server
	u.Path = path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var payload apiError
		if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if s, ok := out.(*string); ok {
		*s = strings.TrimSpace(string(data))
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

// get performs an idempotent read with retries. Client errors other than
// throttling are not retried.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	return retry.Do(ctx, func() error {
		err := c.do(ctx, op, http.MethodGet, path, query, nil, out)
		if err != nil && !isRetryable(err) {
			return retry.Fatal(err)
		}
		return err
	}, c.retryOpts...)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

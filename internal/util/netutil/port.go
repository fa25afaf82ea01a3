// Package netutil holds small TCP reachability helpers.
package netutil

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// DefaultDialTimeout bounds a single reachability probe.
const DefaultDialTimeout = 2 * time.Second

// Reachable reports whether a TCP connection to address can be opened.
func Reachable(ctx context.Context, address string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("%s is not reachable: %w", address, err)
	}
	_ = conn.Close()
	return nil
}

// HostPort returns the host:port a URL connects to, filling in the
// scheme's default port.
func HostPort(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %q: %w", rawURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		default:
			return "", fmt.Errorf("url %q has no port", rawURL)
		}
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("url %q has an invalid port", rawURL)
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// Package nodetest provides an in-memory node transport for tests.
package nodetest

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/imamik/bringup/internal/platform/node"
)

// Response is a scripted result for commands matching a prefix.
type Response struct {
	Output   string
	ExitCode int
	Err      error
}

// Transport is an in-memory node.Transport. Files are keyed by node name.
type Transport struct {
	mu        sync.Mutex
	files     map[string]map[string][]byte
	responses map[string]Response
	commands  map[string][]string
	closed    bool
}

var _ node.Transport = (*Transport)(nil)

// New returns an empty fake transport.
func New() *Transport {
	return &Transport{
		files:     map[string]map[string][]byte{},
		responses: map[string]Response{},
		commands:  map[string][]string{},
	}
}

// SetFile stores a file on a node.
func (t *Transport) SetFile(nodeName, path string, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.files[nodeName] == nil {
		t.files[nodeName] = map[string][]byte{}
	}
	t.files[nodeName][path] = data
}

// File returns a file stored on a node.
func (t *Transport) File(nodeName, path string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, ok := t.files[nodeName][path]
	return data, ok
}

// Respond scripts the result of commands starting with prefix on any node.
func (t *Transport) Respond(prefix string, r Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses[prefix] = r
}

// Commands returns the commands run on a node, in order.
func (t *Transport) Commands(nodeName string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.commands[nodeName]...)
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) Exec(ctx context.Context, target node.Target, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commands[target.Name] = append(t.commands[target.Name], command)

	var best string
	for prefix := range t.responses {
		if strings.HasPrefix(command, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	r, ok := t.responses[best]
	if !ok {
		return "", nil
	}
	if r.Err != nil {
		return "", r.Err
	}
	if r.ExitCode != 0 {
		return r.Output, &node.ExitError{Target: target.Name, Command: command, ExitCode: r.ExitCode}
	}
	return r.Output, nil
}

func (t *Transport) ReadFile(ctx context.Context, target node.Target, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := t.File(target.Name, path)
	if !ok {
		return nil, fmt.Errorf("read %s on %s: %w", path, target.Name, fs.ErrNotExist)
	}
	return data, nil
}

func (t *Transport) WriteFile(ctx context.Context, target node.Target, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.SetFile(target.Name, path, append([]byte(nil), data...))
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

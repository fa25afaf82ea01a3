package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoTransport is returned by None for every call.
var ErrNoTransport = errors.New("no node transport configured")

// Target identifies a node for a transport.
type Target struct {
	// Name is the node's hostname, used in logs and errors.
	Name string
	// Address is the network address for SSH.
	Address string
	// Container is the container name or ID for Docker.
	Container string
}

func (t Target) String() string { return t.Name }

// Transport executes commands and moves files on nodes.
type Transport interface {
	// Exec runs command through /bin/sh and returns its standard output.
	// A non-zero exit status is an *ExitError.
	Exec(ctx context.Context, target Target, command string) (string, error)
	// ReadFile returns the contents of path on the node.
	ReadFile(ctx context.Context, target Target, path string) ([]byte, error)
	// WriteFile replaces path on the node with data.
	WriteFile(ctx context.Context, target Target, path string, data []byte) error
	// Close releases connections held by the transport.
	Close() error
}

// ExitError is a command that ran but exited non-zero.
type ExitError struct {
	Target   string
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q on %s exited with status %d", e.Command, e.Target, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// None is the transport used when node access is disabled.
type None struct{}

func (None) Exec(context.Context, Target, string) (string, error) { return "", ErrNoTransport }

func (None) ReadFile(context.Context, Target, string) ([]byte, error) { return nil, ErrNoTransport }

func (None) WriteFile(context.Context, Target, string, []byte) error { return ErrNoTransport }

func (None) Close() error { return nil }

// Quote returns s as a single-quoted shell word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// RemoveCommand builds an rm command for paths. Paths are passed unquoted so
// the node's shell expands globs such as /dfs*/dn/current/*.
func RemoveCommand(paths []string) string {
	if len(paths) == 0 {
		return "true"
	}
	return "rm -rf " + strings.Join(paths, " ")
}

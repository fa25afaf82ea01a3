package netutil

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReachable(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	assert.NoError(t, Reachable(context.Background(), addr, time.Second))

	require.NoError(t, ln.Close())
	err = Reachable(context.Background(), addr, 200*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not reachable")
}

func TestReachable_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, Reachable(ctx, "127.0.0.1:1", 0))
}

func TestHostPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "explicit port", url: "http://node-1.cluster:7180", want: "node-1.cluster:7180"},
		{name: "http default", url: "http://manager", want: "manager:80"},
		{name: "https default", url: "https://manager/api", want: "manager:443"},
		{name: "ipv6", url: "http://[::1]:7180", want: "[::1]:7180"},
		{name: "no host", url: "http://", wantErr: true},
		{name: "unknown scheme", url: "ftp://manager", wantErr: true},
		{name: "malformed", url: "http://a b:1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := HostPort(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package testing

import (
	"context"
	"testing"
	"time"

	"github.com/imamik/bringup/internal/config"
	"github.com/imamik/bringup/internal/util/poll"
)

// FastPoll is a poll spec short enough for tests.
var FastPoll = poll.Spec{Interval: 5 * time.Millisecond, Timeout: 5 * time.Second}

// SampleAgentConfig is a node agent config.ini as shipped in node images.
const SampleAgentConfig = `[General]
# Hostname of the CM server.
server_host=localhost

# Port that the CM server is listening on.
server_port=7182

listening_ip=
local_filesystem_whitelist=ext2,ext3,ext4,xfs

[Security]
use_tls=0
`

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// FastTimeouts returns timeouts suitable for tests against in-memory fakes.
func FastTimeouts() *config.Timeouts {
	return &config.Timeouts{
		APIRequest:        2 * time.Second,
		PollInterval:      FastPoll.Interval,
		OperationDefault:  FastPoll.Timeout,
		ManagerReady:      FastPoll.Timeout,
		ParcelActivation:  FastPoll.Timeout,
		ClientConfig:      FastPoll.Timeout,
		ServiceStart:      FastPoll.Timeout,
		ManagementService: FastPoll.Timeout,
		HealthCheck:       FastPoll.Timeout,
		NodeCommand:       FastPoll.Timeout,
		DialTimeout:       time.Second,
		RetryMaxAttempts:  2,
		RetryInitialDelay: time.Millisecond,
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadTimeouts_Defaults(t *testing.T) {
	for _, env := range timeoutEnvVars {
		t.Setenv(env, "")
	}

	timeouts := LoadTimeouts()

	assert.Equal(t, 30*time.Second, timeouts.APIRequest)
	assert.Equal(t, 3*time.Second, timeouts.PollInterval)
	assert.Equal(t, 3*time.Minute, timeouts.OperationDefault)
	assert.Equal(t, 3*time.Minute, timeouts.ManagerReady)
	assert.Equal(t, 500*time.Second, timeouts.ParcelActivation)
	assert.Equal(t, 3*time.Minute, timeouts.ClientConfig)
	assert.Equal(t, 10*time.Minute, timeouts.ServiceStart)
	assert.Equal(t, 3*time.Minute, timeouts.ManagementService)
	assert.Equal(t, 10*time.Minute, timeouts.HealthCheck)
	assert.Equal(t, 2*time.Minute, timeouts.NodeCommand)
	assert.Equal(t, 10*time.Second, timeouts.DialTimeout)
	assert.Equal(t, 5, timeouts.RetryMaxAttempts)
	assert.Equal(t, time.Second, timeouts.RetryInitialDelay)
}

func TestLoadTimeouts_FromEnv(t *testing.T) {
	t.Setenv("BRINGUP_TIMEOUT_SERVICE_START", "20m")
	t.Setenv("BRINGUP_TIMEOUT_PARCEL_ACTIVATION", "1h")
	t.Setenv("BRINGUP_RETRY_MAX_ATTEMPTS", "9")
	t.Setenv("BRINGUP_POLL_INTERVAL", "500ms")

	timeouts := LoadTimeouts()

	assert.Equal(t, 20*time.Minute, timeouts.ServiceStart)
	assert.Equal(t, time.Hour, timeouts.ParcelActivation)
	assert.Equal(t, 9, timeouts.RetryMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, timeouts.PollInterval)
}

func TestLoadTimeouts_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BRINGUP_TIMEOUT_HEALTH_CHECK", "soon")
	t.Setenv("BRINGUP_RETRY_MAX_ATTEMPTS", "many")

	timeouts := LoadTimeouts()

	assert.Equal(t, 10*time.Minute, timeouts.HealthCheck)
	assert.Equal(t, 5, timeouts.RetryMaxAttempts)
}

var timeoutEnvVars = []string{
	"BRINGUP_TIMEOUT_API_REQUEST",
	"BRINGUP_POLL_INTERVAL",
	"BRINGUP_TIMEOUT_OPERATION",
	"BRINGUP_TIMEOUT_MANAGER_READY",
	"BRINGUP_TIMEOUT_PARCEL_ACTIVATION",
	"BRINGUP_TIMEOUT_CLIENT_CONFIG",
	"BRINGUP_TIMEOUT_SERVICE_START",
	"BRINGUP_TIMEOUT_MANAGEMENT_SERVICE",
	"BRINGUP_TIMEOUT_HEALTH_CHECK",
	"BRINGUP_TIMEOUT_NODE_COMMAND",
	"BRINGUP_TIMEOUT_DIAL",
	"BRINGUP_RETRY_MAX_ATTEMPTS",
	"BRINGUP_RETRY_INITIAL_DELAY",
}

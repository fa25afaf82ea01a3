package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the timeout values that can be customized via environment
// variables. They seed the poll specs of the configuration file.
type Timeouts struct {
	APIRequest        time.Duration // Timeout for a single management API request
	PollInterval      time.Duration // Default interval between status checks
	OperationDefault  time.Duration // Default timeout for a remote operation
	ManagerReady      time.Duration // Timeout waiting for the management server
	ParcelActivation  time.Duration // Timeout waiting for the parcel to activate
	ClientConfig      time.Duration // Timeout for client configuration deployment
	ServiceStart      time.Duration // Timeout per service command
	ManagementService time.Duration // Timeout for starting the management service
	HealthCheck       time.Duration // Timeout for service health validation
	NodeCommand       time.Duration // Timeout for a command run on a node
	DialTimeout       time.Duration // Timeout for opening a node connection
	RetryMaxAttempts  int           // Maximum number of retry attempts for reads
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - BRINGUP_TIMEOUT_API_REQUEST (default: 30s)
//   - BRINGUP_POLL_INTERVAL (default: 3s)
//   - BRINGUP_TIMEOUT_OPERATION (default: 3m)
//   - BRINGUP_TIMEOUT_MANAGER_READY (default: 3m)
//   - BRINGUP_TIMEOUT_PARCEL_ACTIVATION (default: 500s)
//   - BRINGUP_TIMEOUT_CLIENT_CONFIG (default: 3m)
//   - BRINGUP_TIMEOUT_SERVICE_START (default: 10m)
//   - BRINGUP_TIMEOUT_MANAGEMENT_SERVICE (default: 3m)
//   - BRINGUP_TIMEOUT_HEALTH_CHECK (default: 10m)
//   - BRINGUP_TIMEOUT_NODE_COMMAND (default: 2m)
//   - BRINGUP_TIMEOUT_DIAL (default: 10s)
//   - BRINGUP_RETRY_MAX_ATTEMPTS (default: 5)
//   - BRINGUP_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		APIRequest:        parseDuration("BRINGUP_TIMEOUT_API_REQUEST", 30*time.Second),
		PollInterval:      parseDuration("BRINGUP_POLL_INTERVAL", 3*time.Second),
		OperationDefault:  parseDuration("BRINGUP_TIMEOUT_OPERATION", 3*time.Minute),
		ManagerReady:      parseDuration("BRINGUP_TIMEOUT_MANAGER_READY", 3*time.Minute),
		ParcelActivation:  parseDuration("BRINGUP_TIMEOUT_PARCEL_ACTIVATION", 500*time.Second),
		ClientConfig:      parseDuration("BRINGUP_TIMEOUT_CLIENT_CONFIG", 3*time.Minute),
		ServiceStart:      parseDuration("BRINGUP_TIMEOUT_SERVICE_START", 10*time.Minute),
		ManagementService: parseDuration("BRINGUP_TIMEOUT_MANAGEMENT_SERVICE", 3*time.Minute),
		HealthCheck:       parseDuration("BRINGUP_TIMEOUT_HEALTH_CHECK", 10*time.Minute),
		NodeCommand:       parseDuration("BRINGUP_TIMEOUT_NODE_COMMAND", 2*time.Minute),
		DialTimeout:       parseDuration("BRINGUP_TIMEOUT_DIAL", 10*time.Second),
		RetryMaxAttempts:  parseInt("BRINGUP_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("BRINGUP_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}

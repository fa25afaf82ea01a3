package config

import (
	"time"

	"github.com/imamik/bringup/internal/util/poll"
)

// Config is the complete bring-up configuration.
type Config struct {
	Cluster           ClusterConfig           `json:"cluster" yaml:"cluster" toml:"cluster"`
	Manager           ManagerConfig           `json:"manager" yaml:"manager" toml:"manager"`
	Transport         TransportConfig         `json:"transport,omitempty" yaml:"transport,omitempty" toml:"transport,omitempty"`
	NodeAgent         NodeAgentConfig         `json:"nodeAgent,omitempty" yaml:"nodeAgent,omitempty" toml:"nodeAgent,omitempty"`
	NodeCommands      []NodeCommand           `json:"nodeCommands,omitempty" yaml:"nodeCommands,omitempty" toml:"nodeCommands,omitempty"`
	Parcel            ParcelConfig            `json:"parcel,omitempty" yaml:"parcel,omitempty" toml:"parcel,omitempty"`
	HostTemplates     []HostTemplate          `json:"hostTemplates,omitempty" yaml:"hostTemplates,omitempty" toml:"hostTemplates,omitempty"`
	Databases         DatabaseConfig          `json:"databases,omitempty" yaml:"databases,omitempty" toml:"databases,omitempty"`
	Configuration     ConfigurationUpdates    `json:"configuration,omitempty" yaml:"configuration,omitempty" toml:"configuration,omitempty"`
	ClientConfig      ClientConfigDeployment  `json:"clientConfig,omitempty" yaml:"clientConfig,omitempty" toml:"clientConfig,omitempty"`
	Services          ServicesConfig          `json:"services,omitempty" yaml:"services,omitempty" toml:"services,omitempty"`
	ManagementService ManagementServiceConfig `json:"managementService,omitempty" yaml:"managementService,omitempty" toml:"managementService,omitempty"`
	HealthCheck       HealthCheckConfig       `json:"healthCheck,omitempty" yaml:"healthCheck,omitempty" toml:"healthCheck,omitempty"`

	// Polling is inherited by every operation without its own spec.
	Polling poll.Spec `json:"polling,omitempty" yaml:"polling,omitempty" toml:"polling,omitempty"`

	// Retry bounds retries of idempotent management API reads.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty" toml:"retry,omitempty"`
}

// ClusterConfig names the cluster and lists its nodes. The first node is the
// primary and runs the management server.
type ClusterConfig struct {
	Name   string       `json:"name" yaml:"name" toml:"name" jsonschema:"default=cluster"`
	Domain string       `json:"domain,omitempty" yaml:"domain,omitempty" toml:"domain,omitempty" jsonschema:"default=cluster"`
	Nodes  []NodeConfig `json:"nodes" yaml:"nodes" toml:"nodes" jsonschema:"minItems=1"`
}

// NodeConfig describes one node.
type NodeConfig struct {
	Hostname string `json:"hostname" yaml:"hostname" toml:"hostname"`
	// FQDN defaults to hostname.domain.
	FQDN  string `json:"fqdn,omitempty" yaml:"fqdn,omitempty" toml:"fqdn,omitempty"`
	Group string `json:"group" yaml:"group" toml:"group"`
	IP    string `json:"ip,omitempty" yaml:"ip,omitempty" toml:"ip,omitempty"`
	// Container is the Docker container name; defaults to FQDN.
	Container string `json:"container,omitempty" yaml:"container,omitempty" toml:"container,omitempty"`
	// Address is the SSH address; defaults to IP, then FQDN.
	Address string `json:"address,omitempty" yaml:"address,omitempty" toml:"address,omitempty"`
}

// ManagerConfig locates the management server.
type ManagerConfig struct {
	URL        string `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty" toml:"username,omitempty"`
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty" toml:"apiVersion,omitempty"`
	// Password is read from BRINGUP_MANAGER_PASSWORD only.
	Password string `json:"-" yaml:"-" toml:"-"`

	InsecureSkipVerify bool `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty" toml:"insecureSkipVerify,omitempty"`

	// Ready is the readiness gate run before any API call.
	Ready poll.Spec `json:"ready,omitempty" yaml:"ready,omitempty" toml:"ready,omitempty"`
	// UseContainerHealth waits on the Docker health status of the primary
	// node's container instead of pinging the API.
	UseContainerHealth bool `json:"useContainerHealth,omitempty" yaml:"useContainerHealth,omitempty" toml:"useContainerHealth,omitempty"`
}

// TransportConfig selects how commands and files reach the nodes.
type TransportConfig struct {
	Type   string       `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty" jsonschema:"enum=none,enum=docker,enum=ssh"`
	Docker DockerConfig `json:"docker,omitempty" yaml:"docker,omitempty" toml:"docker,omitempty"`
	SSH    SSHConfig    `json:"ssh,omitempty" yaml:"ssh,omitempty" toml:"ssh,omitempty"`
}

// DockerConfig configures the Docker transport. The engine is located via
// the standard DOCKER_* environment variables unless Host is set.
type DockerConfig struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty" toml:"host,omitempty"`
}

// SSHConfig configures the SSH transport.
type SSHConfig struct {
	User           string `json:"user,omitempty" yaml:"user,omitempty" toml:"user,omitempty"`
	Port           int    `json:"port,omitempty" yaml:"port,omitempty" toml:"port,omitempty"`
	PrivateKeyPath string `json:"privateKeyPath,omitempty" yaml:"privateKeyPath,omitempty" toml:"privateKeyPath,omitempty"`
}

// NodeAgentConfig controls the node preparation phase.
type NodeAgentConfig struct {
	Skip       bool   `json:"skip,omitempty" yaml:"skip,omitempty" toml:"skip,omitempty"`
	ConfigPath string `json:"configPath,omitempty" yaml:"configPath,omitempty" toml:"configPath,omitempty"`
	// FilesystemWhitelist entries are added to the agent's whitelist.
	FilesystemWhitelist []string `json:"filesystemWhitelist,omitempty" yaml:"filesystemWhitelist,omitempty" toml:"filesystemWhitelist,omitempty"`
	// RestartCommand runs on each node after its config was rewritten.
	// Empty disables the restart.
	RestartCommand string           `json:"restartCommand,omitempty" yaml:"restartCommand,omitempty" toml:"restartCommand,omitempty"`
	StaleState     StaleStateConfig `json:"staleState,omitempty" yaml:"staleState,omitempty" toml:"staleState,omitempty"`
}

// StaleStateConfig lists paths removed from cloned nodes.
//
// Nodes of Group beyond the first one share the identity baked into their
// image; Paths are removed from them before registration.
type StaleStateConfig struct {
	Group string   `json:"group,omitempty" yaml:"group,omitempty" toml:"group,omitempty"`
	Paths []string `json:"paths,omitempty" yaml:"paths,omitempty" toml:"paths,omitempty"`
	// KeepFirst leaves the first node of Group untouched.
	KeepFirst *bool `json:"keepFirst,omitempty" yaml:"keepFirst,omitempty" toml:"keepFirst,omitempty"`
}

// NodeCommand is a shell command run on selected nodes at a given stage.
type NodeCommand struct {
	Stage string `json:"stage" yaml:"stage" toml:"stage" jsonschema:"enum=prepare,enum=post"`
	// Nodes is "all", "primary-node", "secondary-nodes" or a group name.
	Nodes   string `json:"nodes" yaml:"nodes" toml:"nodes"`
	Command string `json:"command" yaml:"command" toml:"command"`
}

// ParcelConfig controls the parcel activation gate.
type ParcelConfig struct {
	Skip    bool      `json:"skip,omitempty" yaml:"skip,omitempty" toml:"skip,omitempty"`
	Product string    `json:"product,omitempty" yaml:"product,omitempty" toml:"product,omitempty"`
	Version string    `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	Wait    poll.Spec `json:"wait,omitempty" yaml:"wait,omitempty" toml:"wait,omitempty"`
}

// HostTemplate groups role config groups applied to the nodes of Group.
type HostTemplate struct {
	Name             string   `json:"name" yaml:"name" toml:"name"`
	Group            string   `json:"group" yaml:"group" toml:"group"`
	RoleConfigGroups []string `json:"roleConfigGroups" yaml:"roleConfigGroups" toml:"roleConfigGroups"`
}

// DatabaseConfig points service databases at a host.
type DatabaseConfig struct {
	Skip bool `json:"skip,omitempty" yaml:"skip,omitempty" toml:"skip,omitempty"`
	// Host defaults to the primary node's FQDN.
	Host string `json:"host,omitempty" yaml:"host,omitempty" toml:"host,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty" toml:"port,omitempty"`
}

// ConfigurationUpdates are applied verbatim through the management API.
type ConfigurationUpdates struct {
	Management       map[string]string       `json:"management,omitempty" yaml:"management,omitempty" toml:"management,omitempty"`
	Services         []ServiceConfigUpdate   `json:"services,omitempty" yaml:"services,omitempty" toml:"services,omitempty"`
	RoleConfigGroups []RoleConfigGroupUpdate `json:"roleConfigGroups,omitempty" yaml:"roleConfigGroups,omitempty" toml:"roleConfigGroups,omitempty"`
}

// ServiceConfigUpdate sets service-level configuration.
type ServiceConfigUpdate struct {
	Service string            `json:"service" yaml:"service" toml:"service"`
	Config  map[string]string `json:"config" yaml:"config" toml:"config"`
}

// RoleConfigGroupUpdate sets role-config-group configuration.
type RoleConfigGroupUpdate struct {
	Service string            `json:"service" yaml:"service" toml:"service"`
	Group   string            `json:"group" yaml:"group" toml:"group"`
	Config  map[string]string `json:"config" yaml:"config" toml:"config"`
}

// ClientConfigDeployment controls client configuration deployment.
type ClientConfigDeployment struct {
	Skip bool      `json:"skip,omitempty" yaml:"skip,omitempty" toml:"skip,omitempty"`
	Wait poll.Spec `json:"wait,omitempty" yaml:"wait,omitempty" toml:"wait,omitempty"`
}

// ServicesConfig controls the ordered service starts.
type ServicesConfig struct {
	// DontStart skips the start phases entirely.
	DontStart bool           `json:"dontStart,omitempty" yaml:"dontStart,omitempty" toml:"dontStart,omitempty"`
	Start     []ServiceStart `json:"start,omitempty" yaml:"start,omitempty" toml:"start,omitempty"`
	Wait      poll.Spec      `json:"wait,omitempty" yaml:"wait,omitempty" toml:"wait,omitempty"`
}

// ServiceStart runs Commands, in order, against one service.
type ServiceStart struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	// Commands default to ["start"].
	Commands []string `json:"commands,omitempty" yaml:"commands,omitempty" toml:"commands,omitempty"`
	Skip     bool     `json:"skip,omitempty" yaml:"skip,omitempty" toml:"skip,omitempty"`
}

// ManagementServiceConfig controls the management service.
type ManagementServiceConfig struct {
	// StopFirst stops the management service before hosts are registered.
	StopFirst bool      `json:"stopFirst,omitempty" yaml:"stopFirst,omitempty" toml:"stopFirst,omitempty"`
	DontStart bool      `json:"dontStart,omitempty" yaml:"dontStart,omitempty" toml:"dontStart,omitempty"`
	Wait      poll.Spec `json:"wait,omitempty" yaml:"wait,omitempty" toml:"wait,omitempty"`
}

// HealthCheckConfig controls the final health validation gate.
type HealthCheckConfig struct {
	Enabled bool      `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Wait    poll.Spec `json:"wait,omitempty" yaml:"wait,omitempty" toml:"wait,omitempty"`
}

// RetryConfig bounds retries of idempotent reads.
type RetryConfig struct {
	MaxAttempts    int           `json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty" toml:"maxAttempts,omitempty"`
	InitialDelay   time.Duration `json:"initialDelay,omitempty" yaml:"initialDelay,omitempty" toml:"initialDelay,omitempty"`
	RequestTimeout time.Duration `json:"requestTimeout,omitempty" yaml:"requestTimeout,omitempty" toml:"requestTimeout,omitempty"`
}

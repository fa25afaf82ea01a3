package testing

import (
	"fmt"
	"maps"

	"github.com/imamik/bringup/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a new ConfigBuilder with a three node cluster:
// one primary and two secondaries sharing the "secondary" host template.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		cfg: config.Config{
			Cluster: config.ClusterConfig{
				Name:   "cluster",
				Domain: "cluster",
				Nodes: []config.NodeConfig{
					{Hostname: "node-1", Group: "primary", IP: "192.168.124.2"},
					{Hostname: "node-2", Group: "secondary", IP: "192.168.124.3"},
					{Hostname: "node-3", Group: "secondary", IP: "192.168.124.4"},
				},
			},
			HostTemplates: []config.HostTemplate{
				{Name: "secondary", Group: "secondary", RoleConfigGroups: []string{"hdfs-DATANODE-BASE", "yarn-NODEMANAGER-BASE"}},
			},
			Services: config.ServicesConfig{
				Start: []config.ServiceStart{{Name: "zookeeper"}, {Name: "hdfs"}, {Name: "hive"}, {Name: "oozie"}},
			},
			NodeAgent: config.NodeAgentConfig{
				RestartCommand: config.DefaultAgentRestart,
			},
		},
	}
}

// WithClusterName sets the cluster name.
func (b *ConfigBuilder) WithClusterName(name string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Cluster.Name = name
	return newBuilder
}

// WithNodes replaces the cluster nodes. The first node is the primary.
func (b *ConfigBuilder) WithNodes(nodes ...config.NodeConfig) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Cluster.Nodes = append([]config.NodeConfig(nil), nodes...)
	return newBuilder
}

// WithSecondaries replaces the secondary nodes with count nodes of group
// "secondary".
func (b *ConfigBuilder) WithSecondaries(count int) *ConfigBuilder {
	newBuilder := b.clone()
	nodes := newBuilder.cfg.Cluster.Nodes[:1]
	for i := range count {
		nodes = append(nodes, config.NodeConfig{
			Hostname: fmt.Sprintf("node-%d", i+2),
			Group:    "secondary",
			IP:       fmt.Sprintf("192.168.124.%d", i+3),
		})
	}
	newBuilder.cfg.Cluster.Nodes = nodes
	return newBuilder
}

// WithManagerURL sets the management server URL.
func (b *ConfigBuilder) WithManagerURL(url string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Manager.URL = url
	return newBuilder
}

// WithTransport sets the node transport type.
func (b *ConfigBuilder) WithTransport(transportType string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Transport.Type = transportType
	return newBuilder
}

// WithHostTemplates replaces the host templates.
func (b *ConfigBuilder) WithHostTemplates(templates ...config.HostTemplate) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.HostTemplates = append([]config.HostTemplate(nil), templates...)
	return newBuilder
}

// WithServices replaces the ordered service starts.
func (b *ConfigBuilder) WithServices(starts ...config.ServiceStart) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Services.Start = append([]config.ServiceStart(nil), starts...)
	return newBuilder
}

// WithNodeCommand adds a node command.
func (b *ConfigBuilder) WithNodeCommand(stage, nodes, command string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.NodeCommands = append(newBuilder.cfg.NodeCommands, config.NodeCommand{
		Stage:   stage,
		Nodes:   nodes,
		Command: command,
	})
	return newBuilder
}

// WithConfiguration sets the configuration updates.
func (b *ConfigBuilder) WithConfiguration(updates config.ConfigurationUpdates) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Configuration = cloneConfiguration(updates)
	return newBuilder
}

// WithHealthCheck enables or disables the final health gate.
func (b *ConfigBuilder) WithHealthCheck(enabled bool) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.HealthCheck.Enabled = enabled
	return newBuilder
}

// WithStopManagementFirst stops the management service before registration.
func (b *ConfigBuilder) WithStopManagementFirst(stop bool) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.ManagementService.StopFirst = stop
	return newBuilder
}

// WithDontStart skips the service start phases.
func (b *ConfigBuilder) WithDontStart(dontStart bool) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Services.DontStart = dontStart
	return newBuilder
}

// With applies fn to a copy of the config, for settings without a
// dedicated method.
func (b *ConfigBuilder) With(fn func(*config.Config)) *ConfigBuilder {
	newBuilder := b.clone()
	fn(&newBuilder.cfg)
	return newBuilder
}

// Raw returns a copy of the config without defaults applied.
func (b *ConfigBuilder) Raw() *config.Config {
	cfg := b.clone().cfg
	return &cfg
}

// Build returns the constructed config with defaults applied from
// FastTimeouts. Every poll spec is replaced by FastPoll so that tests do not
// wait for stability windows.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.Raw()
	cfg.ApplyDefaults(FastTimeouts())
	cfg.Manager.Ready = FastPoll
	cfg.Parcel.Wait = FastPoll
	cfg.ClientConfig.Wait = FastPoll
	cfg.Services.Wait = FastPoll
	cfg.ManagementService.Wait = FastPoll
	cfg.HealthCheck.Wait = FastPoll
	cfg.Polling = FastPoll
	return cfg
}

// clone creates a deep copy of the builder for immutability.
func (b *ConfigBuilder) clone() *ConfigBuilder {
	newCfg := b.cfg
	newCfg.Cluster.Nodes = append([]config.NodeConfig(nil), b.cfg.Cluster.Nodes...)
	newCfg.NodeCommands = append([]config.NodeCommand(nil), b.cfg.NodeCommands...)
	newCfg.NodeAgent.FilesystemWhitelist = cloneStringSlice(b.cfg.NodeAgent.FilesystemWhitelist)
	newCfg.NodeAgent.StaleState.Paths = cloneStringSlice(b.cfg.NodeAgent.StaleState.Paths)
	if len(b.cfg.HostTemplates) > 0 {
		newCfg.HostTemplates = make([]config.HostTemplate, len(b.cfg.HostTemplates))
		for i, t := range b.cfg.HostTemplates {
			t.RoleConfigGroups = cloneStringSlice(t.RoleConfigGroups)
			newCfg.HostTemplates[i] = t
		}
	}
	if len(b.cfg.Services.Start) > 0 {
		newCfg.Services.Start = make([]config.ServiceStart, len(b.cfg.Services.Start))
		for i, s := range b.cfg.Services.Start {
			s.Commands = cloneStringSlice(s.Commands)
			newCfg.Services.Start[i] = s
		}
	}
	newCfg.Configuration = cloneConfiguration(b.cfg.Configuration)
	return &ConfigBuilder{cfg: newCfg}
}

// cloneConfiguration creates a deep copy of configuration updates.
func cloneConfiguration(c config.ConfigurationUpdates) config.ConfigurationUpdates {
	cloned := config.ConfigurationUpdates{Management: cloneStringMap(c.Management)}
	for _, u := range c.Services {
		u.Config = cloneStringMap(u.Config)
		cloned.Services = append(cloned.Services, u)
	}
	for _, u := range c.RoleConfigGroups {
		u.Config = cloneStringMap(u.Config)
		cloned.RoleConfigGroups = append(cloned.RoleConfigGroups, u)
	}
	return cloned
}

// cloneStringMap creates a deep copy of a string map.
func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cloned := make(map[string]string, len(m))
	maps.Copy(cloned, m)
	return cloned
}

// cloneStringSlice creates a copy of a string slice.
func cloneStringSlice(s []string) []string {
	if s == nil {
		return nil
	}
	cloned := make([]string, len(s))
	copy(cloned, s)
	return cloned
}

// MinimalConfig returns a minimal config for simple tests.
func MinimalConfig() *config.Config {
	return NewConfigBuilder().
		WithNodes(config.NodeConfig{Hostname: "node-1", Group: "primary"}).
		WithHostTemplates().
		WithServices().
		Build()
}

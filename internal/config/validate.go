package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/imamik/bringup/internal/util/poll"
)

// Validate checks the configuration for common errors and returns a detailed
// error if validation fails. It expects defaults to have been applied.
func (c *Config) Validate() error {
	if c.Cluster.Name == "" {
		return fmt.Errorf("cluster.name is required")
	}
	if err := c.validateNodes(); err != nil {
		return fmt.Errorf("node validation failed: %w", err)
	}
	if err := c.validateManager(); err != nil {
		return fmt.Errorf("manager validation failed: %w", err)
	}
	if err := c.validateTransport(); err != nil {
		return fmt.Errorf("transport validation failed: %w", err)
	}
	if err := c.validateNodeCommands(); err != nil {
		return fmt.Errorf("node command validation failed: %w", err)
	}
	if err := c.validateHostTemplates(); err != nil {
		return fmt.Errorf("host template validation failed: %w", err)
	}
	if err := c.validateConfiguration(); err != nil {
		return fmt.Errorf("configuration update validation failed: %w", err)
	}
	if err := c.validateServices(); err != nil {
		return fmt.Errorf("service validation failed: %w", err)
	}
	if err := c.validatePollSpecs(); err != nil {
		return fmt.Errorf("poll validation failed: %w", err)
	}
	return nil
}

func (c *Config) validateNodes() error {
	if len(c.Cluster.Nodes) == 0 {
		return fmt.Errorf("at least one node is required")
	}
	seen := make(map[string]bool)
	for i, n := range c.Cluster.Nodes {
		if n.Hostname == "" {
			return fmt.Errorf("node %d: hostname is required", i)
		}
		if n.Group == "" {
			return fmt.Errorf("node %q: group is required", n.Hostname)
		}
		if seen[n.FQDN] {
			return fmt.Errorf("duplicate node %q", n.FQDN)
		}
		seen[n.FQDN] = true
	}
	return nil
}

func (c *Config) validateManager() error {
	u, err := url.Parse(c.Manager.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.Manager.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", c.Manager.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", c.Manager.URL)
	}
	if c.Manager.UseContainerHealth && c.Transport.Type != TransportDocker {
		return fmt.Errorf("useContainerHealth requires the docker transport")
	}
	return nil
}

func (c *Config) validateTransport() error {
	switch c.Transport.Type {
	case TransportNone, TransportDocker:
	case TransportSSH:
		if c.Transport.SSH.PrivateKeyPath == "" {
			return fmt.Errorf("ssh.privateKeyPath is required for the ssh transport")
		}
		if c.Transport.SSH.Port <= 0 || c.Transport.SSH.Port > 65535 {
			return fmt.Errorf("invalid ssh port %d", c.Transport.SSH.Port)
		}
	default:
		return fmt.Errorf("invalid transport type %q: must be one of %v",
			c.Transport.Type, []string{TransportNone, TransportDocker, TransportSSH})
	}
	return nil
}

func (c *Config) validateNodeCommands() error {
	if len(c.NodeCommands) > 0 && c.Transport.Type == TransportNone {
		return fmt.Errorf("node commands require a transport")
	}
	groups := c.Groups()
	for i, nc := range c.NodeCommands {
		if nc.Stage != StagePrepare && nc.Stage != StagePost {
			return fmt.Errorf("command %d: invalid stage %q: must be %q or %q", i, nc.Stage, StagePrepare, StagePost)
		}
		if nc.Command == "" {
			return fmt.Errorf("command %d: command is required", i)
		}
		switch nc.Nodes {
		case NodesAll, NodesPrimary, NodesSecondary:
		default:
			if !slices.Contains(groups, nc.Nodes) {
				return fmt.Errorf("command %d: unknown node selector %q", i, nc.Nodes)
			}
		}
	}
	return nil
}

func (c *Config) validateHostTemplates() error {
	groups := c.Groups()
	seen := make(map[string]bool)
	for _, t := range c.HostTemplates {
		if t.Name == "" {
			return fmt.Errorf("template name is required")
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate template %q", t.Name)
		}
		seen[t.Name] = true
		if !slices.Contains(groups, t.Group) {
			return fmt.Errorf("template %q references unknown group %q", t.Name, t.Group)
		}
		if len(t.RoleConfigGroups) == 0 {
			return fmt.Errorf("template %q has no role config groups", t.Name)
		}
	}
	return nil
}

func (c *Config) validateConfiguration() error {
	for i, s := range c.Configuration.Services {
		if s.Service == "" {
			return fmt.Errorf("service update %d: service is required", i)
		}
	}
	for i, g := range c.Configuration.RoleConfigGroups {
		if g.Service == "" || g.Group == "" {
			return fmt.Errorf("role config group update %d: service and group are required", i)
		}
	}
	return nil
}

func (c *Config) validateServices() error {
	for i, s := range c.Services.Start {
		if s.Name == "" {
			return fmt.Errorf("service %d: name is required", i)
		}
	}
	return nil
}

func (c *Config) validatePollSpecs() error {
	specs := []struct {
		name string
		spec poll.Spec
	}{
		{"polling", c.Polling},
		{"manager.ready", c.Manager.Ready},
		{"parcel.wait", c.Parcel.Wait},
		{"clientConfig.wait", c.ClientConfig.Wait},
		{"services.wait", c.Services.Wait},
		{"managementService.wait", c.ManagementService.Wait},
		{"healthCheck.wait", c.HealthCheck.Wait},
	}
	for _, s := range specs {
		if err := s.spec.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

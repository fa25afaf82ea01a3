package config

import (
	"fmt"
	"time"

	"github.com/imamik/bringup/internal/util/poll"
)

// ApplyDefaults fills every unset field. Poll specs are seeded from t.
func (c *Config) ApplyDefaults(t *Timeouts) {
	if c.Cluster.Name == "" {
		c.Cluster.Name = DefaultClusterName
	}
	if c.Cluster.Domain == "" {
		c.Cluster.Domain = DefaultDomain
	}
	for i := range c.Cluster.Nodes {
		n := &c.Cluster.Nodes[i]
		if n.FQDN == "" && n.Hostname != "" {
			n.FQDN = n.Hostname + "." + c.Cluster.Domain
		}
		if n.Container == "" {
			n.Container = n.Hostname
		}
		if n.Address == "" {
			n.Address = n.IP
		}
		if n.Address == "" {
			n.Address = n.FQDN
		}
	}

	c.applyManagerDefaults(t)
	c.applyNodeDefaults()

	if c.Parcel.Product == "" {
		c.Parcel.Product = DefaultParcelProduct
	}
	c.Parcel.Wait = c.Parcel.Wait.WithDefaults(poll.Spec{
		Interval:        time.Second,
		Timeout:         t.ParcelActivation,
		StabilityWindow: 10 * time.Second,
	})

	if c.Databases.Port == 0 {
		c.Databases.Port = DefaultDatabasePort
	}
	if c.Databases.Host == "" {
		c.Databases.Host = c.PrimaryFQDN()
	}

	c.ClientConfig.Wait = c.ClientConfig.Wait.WithDefaults(poll.Spec{Interval: 3 * time.Second, Timeout: t.ClientConfig})

	if len(c.Services.Start) == 0 {
		for _, name := range DefaultServiceOrder {
			c.Services.Start = append(c.Services.Start, ServiceStart{Name: name})
		}
	}
	for i := range c.Services.Start {
		if len(c.Services.Start[i].Commands) == 0 {
			c.Services.Start[i].Commands = []string{DefaultServiceStartVerb}
		}
	}
	c.Services.Wait = c.Services.Wait.WithDefaults(poll.Spec{Interval: time.Second, Timeout: t.ServiceStart})

	c.ManagementService.Wait = c.ManagementService.Wait.WithDefaults(poll.Spec{Interval: 3 * time.Second, Timeout: t.ManagementService})
	c.HealthCheck.Wait = c.HealthCheck.Wait.WithDefaults(poll.Spec{
		Interval:        3 * time.Second,
		Timeout:         t.HealthCheck,
		StabilityWindow: 30 * time.Second,
	})
	c.Polling = c.Polling.WithDefaults(poll.Spec{Interval: t.PollInterval, Timeout: t.OperationDefault})

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = t.RetryMaxAttempts
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = t.RetryInitialDelay
	}
	if c.Retry.RequestTimeout == 0 {
		c.Retry.RequestTimeout = t.APIRequest
	}
}

func (c *Config) applyManagerDefaults(t *Timeouts) {
	if c.Manager.URL == "" && c.PrimaryFQDN() != "" {
		c.Manager.URL = fmt.Sprintf("http://%s:%d", c.PrimaryFQDN(), DefaultManagerPort)
	}
	if c.Manager.Username == "" {
		c.Manager.Username = DefaultUsername
	}
	if c.Manager.APIVersion == "" {
		c.Manager.APIVersion = DefaultAPIVersion
	}
	c.Manager.Ready = c.Manager.Ready.WithDefaults(poll.Spec{Interval: 3 * time.Second, Timeout: t.ManagerReady})
}

func (c *Config) applyNodeDefaults() {
	if c.Transport.Type == "" {
		c.Transport.Type = TransportNone
	}
	if c.Transport.SSH.User == "" {
		c.Transport.SSH.User = DefaultSSHUser
	}
	if c.Transport.SSH.Port == 0 {
		c.Transport.SSH.Port = DefaultSSHPort
	}

	a := &c.NodeAgent
	if a.ConfigPath == "" {
		a.ConfigPath = DefaultAgentConfigPath
	}
	if a.FilesystemWhitelist == nil {
		a.FilesystemWhitelist = append([]string(nil), DefaultFilesystemWhitelist...)
	}
	if a.StaleState.Group == "" {
		a.StaleState.Group = DefaultStaleStateGroup
	}
	if a.StaleState.Paths == nil {
		a.StaleState.Paths = append([]string(nil), DefaultStalePaths...)
	}
	if a.StaleState.KeepFirst == nil {
		keep := true
		a.StaleState.KeepFirst = &keep
	}
}

// PrimaryFQDN returns the FQDN of the first node, or "" without nodes.
func (c *Config) PrimaryFQDN() string {
	if len(c.Cluster.Nodes) == 0 {
		return ""
	}
	return c.Cluster.Nodes[0].FQDN
}

// Groups returns the distinct node groups in first-seen order.
func (c *Config) Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, n := range c.Cluster.Nodes {
		if !seen[n.Group] {
			seen[n.Group] = true
			groups = append(groups, n.Group)
		}
	}
	return groups
}

package cluster

import (
	"fmt"
	"strings"
)

// Node is one machine of the cluster.
type Node struct {
	// Hostname is the short name, e.g. "node-1".
	Hostname string `json:"hostname" yaml:"hostname"`
	// FQDN is the stable identity used to correlate remote hosts.
	FQDN string `json:"fqdn" yaml:"fqdn"`
	// Group selects the host template applied to the node.
	Group string `json:"group" yaml:"group"`
	IP    string `json:"ip,omitempty" yaml:"ip,omitempty"`
	// HostID is assigned by the management plane once the host is known.
	HostID string `json:"hostId,omitempty" yaml:"hostId,omitempty"`
}

// ShortName returns Hostname, or the first label of FQDN when unset.
func (n Node) ShortName() string {
	if n.Hostname != "" {
		return n.Hostname
	}
	name, _, _ := strings.Cut(n.FQDN, ".")
	return name
}

func (n Node) validate() error {
	if n.FQDN == "" {
		return fmt.Errorf("node %q: fqdn is required", n.Hostname)
	}
	if n.Group == "" {
		return fmt.Errorf("node %q: group is required", n.FQDN)
	}
	return nil
}

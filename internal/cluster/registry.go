package cluster

import (
	"fmt"
	"strings"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/imamik/bringup/internal/bringup"
)

// Registry is the set of nodes making up a cluster. It is safe for
// concurrent use.
type Registry struct {
	name string

	mu     sync.RWMutex
	nodes  []*Node
	byFQDN map[string]*Node
}

// NewRegistry returns a registry for the named cluster. Node order is kept;
// the first node is the primary (it runs the management server).
func NewRegistry(name string, nodes []Node) (*Registry, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("cluster %q has no nodes", name)
	}
	r := &Registry{name: name, byFQDN: make(map[string]*Node, len(nodes))}
	for i := range nodes {
		n := nodes[i]
		if err := n.validate(); err != nil {
			return nil, err
		}
		key := normalize(n.FQDN)
		if _, dup := r.byFQDN[key]; dup {
			return nil, fmt.Errorf("duplicate node fqdn %q", n.FQDN)
		}
		r.nodes = append(r.nodes, &n)
		r.byFQDN[key] = &n
	}
	return r, nil
}

// Name returns the cluster name.
func (r *Registry) Name() string { return r.name }

// Nodes returns a snapshot of all nodes in declaration order.
func (r *Registry) Nodes() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Node, len(r.nodes))
	for i, n := range r.nodes {
		out[i] = *n
	}
	return out
}

// Primary returns the first node.
func (r *Registry) Primary() Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *r.nodes[0]
}

// Secondaries returns every node but the primary.
func (r *Registry) Secondaries() []Node {
	return r.Nodes()[1:]
}

// Groups returns the distinct node groups in first-seen order.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := sets.New[string]()
	var groups []string
	for _, n := range r.nodes {
		if !seen.Has(n.Group) {
			seen.Insert(n.Group)
			groups = append(groups, n.Group)
		}
	}
	return groups
}

// Resolve finds the node whose FQDN matches hostname. Matching ignores case
// and a trailing dot.
func (r *Registry) Resolve(hostname string) (Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.byFQDN[normalize(hostname)]
	if !ok {
		return Node{}, &bringup.LookupError{Entity: "node", Key: hostname}
	}
	return *n, nil
}

// Associate records the management plane's host ID for the node with fqdn.
// A node already bound to another ID fails with bringup.ErrLookup.
func (r *Registry) Associate(fqdn, hostID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byFQDN[normalize(fqdn)]
	if !ok {
		return &bringup.LookupError{Entity: "node", Key: fqdn}
	}
	if n.HostID != "" && n.HostID != hostID {
		return fmt.Errorf("%w: node %q is already associated with host %q, got %q", bringup.ErrLookup, fqdn, n.HostID, hostID)
	}
	n.HostID = hostID
	return nil
}

// RegisteredIDs returns the host IDs of every associated node.
func (r *Registry) RegisteredIDs() sets.Set[string] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := sets.New[string]()
	for _, n := range r.nodes {
		if n.HostID != "" {
			ids.Insert(n.HostID)
		}
	}
	return ids
}

// GroupIDs returns the host IDs of associated nodes in group.
func (r *Registry) GroupIDs(group string) sets.Set[string] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := sets.New[string]()
	for _, n := range r.nodes {
		if n.Group == group && n.HostID != "" {
			ids.Insert(n.HostID)
		}
	}
	return ids
}

// Unassociated returns the FQDNs of nodes without a host ID.
func (r *Registry) Unassociated() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, n := range r.nodes {
		if n.HostID == "" {
			out = append(out, n.FQDN)
		}
	}
	return out
}

func normalize(fqdn string) string {
	return strings.ToLower(strings.TrimSuffix(fqdn, "."))
}

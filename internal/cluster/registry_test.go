package cluster

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/imamik/bringup/internal/bringup"
)

func testNodes() []Node {
	return []Node{
		{Hostname: "node-1", FQDN: "node-1.cluster", Group: "primary", IP: "192.168.123.2"},
		{Hostname: "node-2", FQDN: "node-2.cluster", Group: "secondary", IP: "192.168.123.3"},
		{Hostname: "node-3", FQDN: "node-3.cluster", Group: "secondary", IP: "192.168.123.4"},
	}
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		nodes   []Node
		wantErr string
	}{
		{"valid", testNodes(), ""},
		{"empty", nil, "has no nodes"},
		{"missing fqdn", []Node{{Hostname: "a", Group: "g"}}, "fqdn is required"},
		{"missing group", []Node{{FQDN: "a.b"}}, "group is required"},
		{"duplicate", []Node{{FQDN: "a.b", Group: "g"}, {FQDN: "A.B.", Group: "g"}}, "duplicate node fqdn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := NewRegistry("cluster", tt.nodes)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "cluster", r.Name())
		})
	}
}

func TestRegistry_Topology(t *testing.T) {
	t.Parallel()
	r, err := NewRegistry("cluster", testNodes())
	require.NoError(t, err)

	assert.Equal(t, "node-1.cluster", r.Primary().FQDN)
	assert.Len(t, r.Secondaries(), 2)
	assert.Equal(t, []string{"primary", "secondary"}, r.Groups())
	assert.Equal(t, "node-2", Node{FQDN: "node-2.cluster"}.ShortName())
}

func TestRegistry_ResolveAndAssociate(t *testing.T) {
	t.Parallel()
	r, err := NewRegistry("cluster", testNodes())
	require.NoError(t, err)

	n, err := r.Resolve("NODE-2.cluster.")
	require.NoError(t, err)
	assert.Equal(t, "node-2", n.Hostname)

	_, err = r.Resolve("stray.example")
	require.Error(t, err)
	assert.ErrorIs(t, err, bringup.ErrLookup)
	assert.Equal(t, bringup.ClassLookup, bringup.Classify(err))

	require.NoError(t, r.Associate("node-1.cluster", "h1"))
	require.NoError(t, r.Associate("node-2.cluster", "h2"))
	require.NoError(t, r.Associate("node-2.cluster", "h2"), "re-associating the same id is a no-op")

	err = r.Associate("node-2.cluster", "other")
	require.Error(t, err)
	assert.ErrorIs(t, err, bringup.ErrLookup)
	assert.Equal(t, bringup.ClassLookup, bringup.Classify(err))
	assert.ErrorContains(t, err, `already associated with host "h2"`)

	assert.ErrorIs(t, r.Associate("nope", "h9"), bringup.ErrLookup)

	assert.Equal(t, sets.New("h1", "h2"), r.RegisteredIDs())
	assert.Equal(t, sets.New("h2"), r.GroupIDs("secondary"))
	assert.Equal(t, sets.New("h1"), r.GroupIDs("primary"))
	assert.Empty(t, r.GroupIDs("unknown"))
	assert.Equal(t, []string{"node-3.cluster"}, r.Unassociated())
}

func TestRegistry_NodesIsSnapshot(t *testing.T) {
	t.Parallel()
	r, err := NewRegistry("cluster", testNodes())
	require.NoError(t, err)

	nodes := r.Nodes()
	nodes[0].HostID = "mutated"
	assert.Empty(t, r.Primary().HostID)
}

func TestRegistry_ConcurrentAssociate(t *testing.T) {
	t.Parallel()
	r, err := NewRegistry("cluster", testNodes())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, n := range testNodes() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Associate(n.FQDN, n.Hostname)
			_ = r.RegisteredIDs()
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, r.RegisteredIDs().Len())
}

package testing

import (
	"fmt"
	"strings"

	"github.com/imamik/bringup/internal/config"
	"github.com/imamik/bringup/internal/platform/cm"
	"github.com/imamik/bringup/internal/platform/cm/cmtest"
	"github.com/imamik/bringup/internal/platform/node/nodetest"
)

// Fixture credentials accepted by the fake management server.
const (
	FixtureUsername = "admin"
	FixturePassword = "admin"
	// FixtureParcelVersion is the version of the seeded platform parcel.
	FixtureParcelVersion = "5.16.2-1.cdh5.16.2.p0.8"
)

// T is the subset of testing.T the fixtures need, so that they can also be
// used from Ginkgo specs through GinkgoT.
type T interface {
	Helper()
	Cleanup(func())
	Fatalf(format string, args ...any)
}

// ClusterFixture is a fake management server and node transport seeded so
// that a full bring-up of Config succeeds.
type ClusterFixture struct {
	Server *cmtest.Server
	Nodes  *nodetest.Transport
	Config *config.Config
}

// NewClusterFixture builds the config from b, points it at a new fake
// server and seeds both fakes:
//   - every node is known to the server as host-<n>; only host-1 (the
//     primary) is a cluster member and carries roles
//   - the platform parcel activates after one poll
//   - every configured service exists and is stopped; oozie has an
//     OOZIE_SERVER role config group
//   - every node has a stock agent config
func NewClusterFixture(t T, b *ConfigBuilder) *ClusterFixture {
	t.Helper()

	server := cmtest.NewServer(b.Raw().Cluster.Name)
	t.Cleanup(server.Close)
	server.RequireAuth(FixtureUsername, FixturePassword)

	cfg := b.WithManagerURL(server.URL).Build()
	cfg.Manager.Password = FixturePassword

	nodes := nodetest.New()
	for i, n := range cfg.Cluster.Nodes {
		id := HostID(i)
		if i == 0 {
			server.AddHost(id, n.FQDN, "hdfs-NAMENODE-"+id, "cloudera-scm-server-"+id)
			server.AddClusterHost(id)
		} else {
			server.AddHost(id, n.FQDN)
		}
		nodes.SetFile(n.FQDN, cfg.NodeAgent.ConfigPath, []byte(SampleAgentConfig))
	}

	server.AddParcel(cfg.Parcel.Product, FixtureParcelVersion, cm.ParcelActivating, cm.ParcelActivated)

	for _, s := range cfg.Services.Start {
		svc := cmtest.Service{Name: s.Name, Type: strings.ToUpper(s.Name), State: "STOPPED", Health: cm.HealthGood}
		if svc.Type == "OOZIE" {
			svc.RoleConfigGroups = map[string]string{
				s.Name + "-OOZIE_SERVER-BASE": "OOZIE_SERVER",
				s.Name + "-GATEWAY-BASE":      "GATEWAY",
			}
		}
		server.AddService(svc)
	}

	return &ClusterFixture{Server: server, Nodes: nodes, Config: cfg}
}

// Client returns a management client for the fixture's server.
func (f *ClusterFixture) Client(t T, opts ...cm.ClientOption) *cm.Client {
	t.Helper()
	base := []cm.ClientOption{
		cm.WithCredentials(FixtureUsername, FixturePassword),
		cm.WithAPIVersion(f.Config.Manager.APIVersion),
		cm.WithCluster(f.Config.Cluster.Name),
		cm.WithRetry(max(f.Config.Retry.MaxAttempts-1, 0), f.Config.Retry.InitialDelay),
	}
	client, err := cm.NewClient(f.Config.Manager.URL, append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to create management client: %v", err)
	}
	return client
}

// SecondaryIDs returns the host IDs of every node but the primary.
func (f *ClusterFixture) SecondaryIDs() []string {
	var ids []string
	for i := 1; i < len(f.Config.Cluster.Nodes); i++ {
		ids = append(ids, HostID(i))
	}
	return ids
}

// HostID returns the fixture host ID of the node at index i.
func HostID(i int) string {
	return fmt.Sprintf("host-%d", i+1)
}

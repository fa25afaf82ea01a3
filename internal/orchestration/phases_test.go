package orchestration

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/bringup/internal/bringup"
	"github.com/imamik/bringup/internal/cluster"
	"github.com/imamik/bringup/internal/config"
	"github.com/imamik/bringup/internal/platform/cm"
	"github.com/imamik/bringup/internal/platform/docker"
	testutil "github.com/imamik/bringup/internal/testing"
)

func phaseNames(phases []bringup.Phase) []string {
	names := make([]string, 0, len(phases))
	for _, p := range phases {
		names = append(names, p.Name)
	}
	return names
}

func TestReconciler_Phases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		builder *testutil.ConfigBuilder
		want    []string
	}{
		{
			name:    "defaults",
			builder: testutil.NewConfigBuilder(),
			want: []string{
				PhaseRemoveStaleState, PhasePrepareNodes, PhaseAwaitManager, PhaseRegisterHosts, PhaseActivateParcel,
				PhaseHostTemplates, PhaseServiceConfiguration, PhaseClientConfiguration,
				PhaseStartServices, PhaseStartManagementService,
			},
		},
		{
			name: "everything enabled",
			builder: testutil.NewConfigBuilder().
				WithStopManagementFirst(true).
				WithHealthCheck(true).
				WithNodeCommand(config.StagePrepare, config.NodesAll, "true").
				WithNodeCommand(config.StagePost, config.NodesAll, "true"),
			want: []string{
				PhaseRemoveStaleState, PhasePrepareNodes, PhasePrepareCommands, PhaseAwaitManager, PhaseStopManagementService,
				PhaseRegisterHosts, PhaseActivateParcel, PhaseHostTemplates, PhaseServiceConfiguration,
				PhaseClientConfiguration, PhaseStartServices, PhaseStartManagementService,
				PhaseValidateHealth, PhasePostCommands,
			},
		},
		{
			name:    "dont start",
			builder: testutil.NewConfigBuilder().WithDontStart(true).WithHealthCheck(true),
			want: []string{
				PhaseRemoveStaleState, PhasePrepareNodes, PhaseAwaitManager, PhaseRegisterHosts, PhaseActivateParcel,
				PhaseHostTemplates, PhaseServiceConfiguration, PhaseClientConfiguration,
			},
		},
		{
			name: "skipped steps",
			builder: testutil.NewConfigBuilder().WithHostTemplates().With(func(c *config.Config) {
				c.NodeAgent.Skip = true
				c.NodeAgent.StaleState.Paths = []string{}
				c.Parcel.Skip = true
				c.ClientConfig.Skip = true
				c.ManagementService.DontStart = true
			}),
			want: []string{
				PhaseAwaitManager, PhaseRegisterHosts, PhaseServiceConfiguration, PhaseStartServices,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := NewReconciler(testutil.NewMockManagement(), tt.builder.Build())
			require.NoError(t, err)
			assert.Equal(t, tt.want, phaseNames(r.Phases()))
		})
	}
}

func TestReconciler_PlanAndWritePlan(t *testing.T) {
	t.Parallel()

	cfg := testutil.NewConfigBuilder().
		WithServices(config.ServiceStart{Name: "zookeeper"}, config.ServiceStart{Name: "hdfs"}).
		Build()
	r, err := NewReconciler(testutil.NewMockManagement(), cfg)
	require.NoError(t, err)

	steps := r.Plan()
	require.NotEmpty(t, steps)
	assert.Equal(t, PhaseRemoveStaleState, steps[0].Phase)
	assert.Equal(t, PhasePrepareNodes, steps[1].Phase)
	assert.True(t, steps[1].Parallel)
	assert.Contains(t, steps[1].Operations, "node-agent-configuration node-1.cluster")

	var start PlanStep
	for _, s := range steps {
		if s.Phase == PhaseStartServices {
			start = s
		}
	}
	assert.Equal(t, []string{"start-service zookeeper", "start-service hdfs"}, start.Operations)

	var buf bytes.Buffer
	require.NoError(t, WritePlan(&buf, steps))
	out := buf.String()
	assert.Contains(t, out, " 1. remove-stale-state (parallel)\n")
	assert.Contains(t, out, " 2. prepare-nodes (parallel)\n")
	assert.Contains(t, out, "      - start-service hdfs\n")
	assert.Contains(t, out, ". register-hosts\n")
}

func TestReconciler_SelectNodes(t *testing.T) {
	t.Parallel()

	cfg := testutil.NewConfigBuilder().WithNodes(
		config.NodeConfig{Hostname: "node-1", Group: "primary"},
		config.NodeConfig{Hostname: "node-2", Group: "secondary"},
		config.NodeConfig{Hostname: "edge-1", Group: "edge"},
	).Build()
	r, err := NewReconciler(testutil.NewMockManagement(), cfg)
	require.NoError(t, err)

	tests := []struct {
		selector string
		want     []string
	}{
		{selector: config.NodesAll, want: []string{"node-1.cluster", "node-2.cluster", "edge-1.cluster"}},
		{selector: config.NodesPrimary, want: []string{"node-1.cluster"}},
		{selector: config.NodesSecondary, want: []string{"node-2.cluster", "edge-1.cluster"}},
		{selector: "edge", want: []string{"edge-1.cluster"}},
		{selector: "missing", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			t.Parallel()
			var got []string
			for _, n := range r.selectNodes(tt.selector) {
				got = append(got, n.FQDN)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconciler_StaleNodes(t *testing.T) {
	t.Parallel()

	keep, drop := true, false
	tests := []struct {
		name      string
		keepFirst *bool
		want      []string
	}{
		{name: "keep first by default", want: []string{"node-3.cluster"}},
		{name: "keep first", keepFirst: &keep, want: []string{"node-3.cluster"}},
		{name: "clean every member", keepFirst: &drop, want: []string{"node-2.cluster", "node-3.cluster"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testutil.NewConfigBuilder().With(func(c *config.Config) {
				c.NodeAgent.StaleState.KeepFirst = tt.keepFirst
			}).Build()
			r, err := NewReconciler(testutil.NewMockManagement(), cfg)
			require.NoError(t, err)

			var got []string
			for _, n := range r.staleNodes() {
				got = append(got, n.FQDN)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnhealthyServices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		services []cm.Service
		want     []string
	}{
		{
			name: "all good",
			services: []cm.Service{
				{Name: "hdfs", ServiceState: cm.ServiceStarted, HealthSummary: cm.HealthGood},
				{Name: "mgmt", ServiceState: cm.ServiceStarted, HealthSummary: cm.HealthGood},
			},
		},
		{
			name:     "no state is ignored",
			services: []cm.Service{{Name: "spark", ServiceState: cm.ServiceStateNA, HealthSummary: "BAD"}},
		},
		{
			name: "poor health and stopped services are reported sorted",
			services: []cm.Service{
				{Name: "yarn", ServiceState: cm.ServiceStarted, HealthSummary: "CONCERNING"},
				{Name: "hdfs", ServiceState: "STOPPED", HealthSummary: cm.HealthGood},
				{Name: "zookeeper", ServiceState: cm.ServiceStarted, HealthSummary: cm.HealthGood},
			},
			want: []string{"hdfs (STOPPED/GOOD)", "yarn (STARTED/CONCERNING)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, unhealthyServices(tt.services))
		})
	}
}

func TestFindParcel(t *testing.T) {
	t.Parallel()

	parcels := []cm.Parcel{
		{Product: "KAFKA", Version: "3.1.0", Stage: cm.ParcelActivated},
		{Product: "CDH", Version: "5.15.0", Stage: "DISTRIBUTED"},
		{Product: "CDH", Version: "5.16.2", Stage: cm.ParcelActivating},
	}

	tests := []struct {
		name        string
		cfg         config.ParcelConfig
		wantVersion string
		wantOK      bool
	}{
		{name: "first activating parcel", cfg: config.ParcelConfig{Product: "CDH"}, wantVersion: "5.16.2", wantOK: true},
		{name: "configured version in any stage", cfg: config.ParcelConfig{Product: "CDH", Version: "5.15.0"}, wantVersion: "5.15.0", wantOK: true},
		{name: "configured version missing", cfg: config.ParcelConfig{Product: "CDH", Version: "6.0.0"}},
		{name: "unknown product", cfg: config.ParcelConfig{Product: "SPARK2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, ok := findParcel(parcels, tt.cfg)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantVersion, p.Version)
		})
	}
}

func TestCarriesRoles(t *testing.T) {
	t.Parallel()

	prefixes := rolePrefixes([]string{"hdfs-DATANODE-BASE", "yarn-NODEMANAGER-BASE"})
	assert.Equal(t, []string{"hdfs-DATANODE-", "yarn-NODEMANAGER-"}, prefixes)

	tests := []struct {
		name  string
		roles []string
		want  bool
	}{
		{name: "no roles"},
		{name: "other roles", roles: []string{"hdfs-NAMENODE-host-1"}},
		{name: "template role", roles: []string{"hdfs-NAMENODE-host-1", "yarn-NODEMANAGER-host-2"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := cm.Host{HostID: "host-2"}
			for _, role := range tt.roles {
				h.RoleRefs = append(h.RoleRefs, cm.RoleRef{RoleName: role})
			}
			assert.Equal(t, tt.want, carriesRoles(h, prefixes))
		})
	}
}

func TestRegisterHosts_SubmissionErrorIsClassified(t *testing.T) {
	t.Parallel()

	mgmt := testutil.NewMockManagement().WithHosts(
		[]cm.Host{{HostID: "host-1", Hostname: "node-1.cluster"}},
		nil,
	)
	mgmt.On("Submit", mock.Anything, bringup.KindRegisterHosts, cm.RegisterHostsParams{HostIDs: []string{"host-1"}}).
		Return(bringup.NoHandle, errors.New("connection reset by peer"))

	r, err := NewReconciler(mgmt, testutil.MinimalConfig())
	require.NoError(t, err)

	run, err := bringup.NewRunner(mgmt).Run(testutil.TestContext(t), []bringup.Phase{r.registerHostsPhase()})
	require.Error(t, err)
	assert.Equal(t, bringup.ClassSubmission, bringup.Classify(err))
	assert.ErrorContains(t, err, "connection reset by peer")
	assert.False(t, run.HasOutput(OutputAddedHosts))
	mgmt.AssertExpectations(t)
}

func TestRegisterHosts_AssociatesHostIDs(t *testing.T) {
	t.Parallel()

	mgmt := testutil.NewMockManagement().
		WithHosts(
			[]cm.Host{{HostID: "a1", Hostname: "NODE-1.cluster"}, {HostID: "b2", Hostname: "node-2.cluster."}},
			[]cm.Host{{HostID: "a1"}},
		).
		WithSubmit(bringup.KindRegisterHosts, "cmd-7").
		WithStatus("cmd-7", bringup.RemoteStatus{Success: true})

	cfg := testutil.NewConfigBuilder().WithSecondaries(1).Build()
	r, err := NewReconciler(mgmt, cfg)
	require.NoError(t, err)

	run, err := bringup.NewRunner(mgmt, bringup.WithDefaultPoll(testutil.FastPoll)).
		Run(testutil.TestContext(t), []bringup.Phase{r.registerHostsPhase()})
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, run.Output(OutputAddedHosts))

	n, err := r.Registry().Resolve("node-2.cluster")
	require.NoError(t, err)
	assert.Equal(t, "b2", n.HostID)
	mgmt.AssertCalled(t, "Submit", mock.Anything, bringup.KindRegisterHosts, cm.RegisterHostsParams{HostIDs: []string{"b2"}})
}

func TestHostTemplates_CreatesOnlyMissing(t *testing.T) {
	t.Parallel()

	cfg := testutil.NewConfigBuilder().WithHostTemplates(
		config.HostTemplate{Name: "workers", Group: "secondary", RoleConfigGroups: []string{"hdfs-DATANODE-BASE"}},
		config.HostTemplate{Name: "gateways", Group: "secondary", RoleConfigGroups: []string{"hive-GATEWAY-BASE"}},
	).Build()

	mgmt := testutil.NewMockManagement()
	mgmt.On("HostTemplates", mock.Anything).Return([]cm.HostTemplate{{Name: "workers"}}, nil)
	mgmt.On("Submit", mock.Anything, bringup.KindCreateHostTemplate,
		cm.CreateHostTemplateParams{Name: "gateways", RoleConfigGroups: []string{"hive-GATEWAY-BASE"}}).
		Return(bringup.NoHandle, nil).Once()

	r, err := NewReconciler(mgmt, cfg)
	require.NoError(t, err)

	phase := r.hostTemplatesPhase()
	require.Len(t, phase.Operations, 3)
	run, err := bringup.NewRunner(mgmt).Run(testutil.TestContext(t), []bringup.Phase{{
		Name:       phase.Name,
		Operations: phase.Operations[:1],
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"gateways"}, run.Output(OutputCreatedTemplates))
	mgmt.AssertExpectations(t)
}

type fakeHealth struct {
	mu       sync.Mutex
	statuses []string
	calls    int
}

func (f *fakeHealth) Health(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.statuses[min(f.calls, len(f.statuses)-1)]
	f.calls++
	return s, nil
}

func TestAwaitManager_ContainerHealth(t *testing.T) {
	t.Parallel()

	cfg := testutil.NewConfigBuilder().With(func(c *config.Config) {
		c.Manager.UseContainerHealth = true
	}).Build()
	health := &fakeHealth{statuses: []string{docker.HealthStarting, docker.HealthStarting, docker.HealthHealthy}}

	mgmt := testutil.NewMockManagement()
	r, err := NewReconciler(mgmt, cfg, WithHealthChecker(health))
	require.NoError(t, err)

	phase := r.awaitManagerPhase()
	require.Len(t, phase.Operations, 1)
	assert.Equal(t, "manager container node-1", phase.Operations[0].Target)

	run, err := bringup.NewRunner(mgmt).Run(testutil.TestContext(t), []bringup.Phase{phase})
	require.NoError(t, err)
	p, _ := run.Phase(PhaseAwaitManager)
	assert.Equal(t, 3, p.Operations[0].Ticks)
	mgmt.AssertNotCalled(t, "Version", mock.Anything)
}

func TestAwaitManager_InvalidURLFails(t *testing.T) {
	t.Parallel()

	cfg := testutil.NewConfigBuilder().WithManagerURL("ftp://node-1.cluster").Build()
	r, err := NewReconciler(testutil.NewMockManagement(), cfg)
	require.NoError(t, err)

	phase := r.awaitManagerPhase()
	assert.Equal(t, "manager api", phase.Operations[0].Target)
	_, err = bringup.NewRunner(testutil.NewMockManagement()).Run(testutil.TestContext(t), []bringup.Phase{phase})
	require.Error(t, err)
	assert.Equal(t, bringup.ClassOperation, bringup.Classify(err))
}

func TestServiceConfiguration_DatabaseHosts(t *testing.T) {
	t.Parallel()

	cfg := testutil.NewConfigBuilder().With(func(c *config.Config) {
		c.Databases.Host = "db.cluster"
		c.Databases.Port = 5432
	}).Build()

	mgmt := testutil.NewMockManagement().WithServices([]cm.Service{
		{Name: "hue1", Type: "HUE"},
		{Name: "hue2", Type: "HUE"},
		{Name: "oozie", Type: "OOZIE"},
	})
	mgmt.On("RoleConfigGroups", mock.Anything, "oozie").Return([]cm.RoleConfigGroup{
		{Name: "oozie-OOZIE_SERVER-BASE", RoleType: "OOZIE_SERVER"},
		{Name: "oozie-GATEWAY-BASE", RoleType: "GATEWAY"},
	}, nil)
	for _, svc := range []string{"hue1", "hue2"} {
		mgmt.On("Submit", mock.Anything, bringup.KindUpdateServiceConfig,
			cm.ServiceConfigParams{Service: svc, Config: map[string]string{"database_host": "db.cluster"}}).
			Return(bringup.NoHandle, nil).Once()
	}
	mgmt.On("Submit", mock.Anything, bringup.KindUpdateRoleGroupConfig, cm.RoleConfigGroupParams{
		Service: "oozie",
		Group:   "oozie-OOZIE_SERVER-BASE",
		Config:  map[string]string{"oozie_database_host": "db.cluster:5432"},
	}).Return(bringup.NoHandle, nil).Once()

	r, err := NewReconciler(mgmt, cfg)
	require.NoError(t, err)

	run, err := bringup.NewRunner(mgmt).Run(testutil.TestContext(t), []bringup.Phase{r.serviceConfigurationPhase()})
	require.NoError(t, err)
	mgmt.AssertExpectations(t)

	p, _ := run.Phase(PhaseServiceConfiguration)
	statuses := map[string]bringup.OperationStatus{}
	for _, op := range p.Operations {
		statuses[op.Target] = op.Status
	}
	assert.Equal(t, map[string]bringup.OperationStatus{
		"HIVE database":   bringup.OperationSkipped,
		"HUE database":    bringup.OperationSucceeded,
		"SENTRY database": bringup.OperationSkipped,
		"OOZIE database":  bringup.OperationSucceeded,
	}, statuses)
}

func TestReconciler_Target(t *testing.T) {
	t.Parallel()

	cfg := testutil.NewConfigBuilder().WithNodes(
		config.NodeConfig{Hostname: "node-1", Group: "primary", IP: "10.0.0.1", Container: "cdh-primary"},
	).Build()
	r, err := NewReconciler(testutil.NewMockManagement(), cfg)
	require.NoError(t, err)

	target := r.target("node-1.cluster")
	assert.Equal(t, "node-1.cluster", target.Name)
	assert.Equal(t, "10.0.0.1", target.Address)
	assert.Equal(t, "cdh-primary", target.Container)
	assert.Equal(t, cluster.Node{Hostname: "node-1", FQDN: "node-1.cluster", Group: "primary", IP: "10.0.0.1"}, r.Registry().Primary())
}

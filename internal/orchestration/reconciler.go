package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/bringup/internal/bringup"
	"github.com/imamik/bringup/internal/cluster"
	"github.com/imamik/bringup/internal/config"
	"github.com/imamik/bringup/internal/platform/cm"
	"github.com/imamik/bringup/internal/platform/node"
)

// Phase names.
const (
	PhaseRemoveStaleState       = "remove-stale-state"
	PhasePrepareNodes           = "prepare-nodes"
	PhasePrepareCommands        = "prepare-commands"
	PhaseAwaitManager           = "await-manager"
	PhaseStopManagementService  = "stop-management-service"
	PhaseRegisterHosts          = "register-hosts"
	PhaseActivateParcel         = "activate-parcel"
	PhaseHostTemplates          = "host-templates"
	PhaseServiceConfiguration   = "service-configuration"
	PhaseClientConfiguration    = "client-configuration"
	PhaseStartServices          = "start-services"
	PhaseStartManagementService = "start-management-service"
	PhaseValidateHealth         = "validate-health"
	PhasePostCommands           = "post-commands"
)

// Run outputs.
const (
	// OutputAddedHosts lists the host IDs added to the cluster.
	OutputAddedHosts = "added-hosts"
	// OutputCreatedTemplates lists the host templates created.
	OutputCreatedTemplates = "created-templates"
	// OutputAppliedPrefix prefixes, per template, the host IDs it was applied to.
	OutputAppliedPrefix = "applied:"
)

// Inventory is the read side of the management plane.
type Inventory interface {
	Version(ctx context.Context) (string, error)
	Hosts(ctx context.Context) ([]cm.Host, error)
	ClusterHosts(ctx context.Context) ([]cm.Host, error)
	HostTemplates(ctx context.Context) ([]cm.HostTemplate, error)
	Parcels(ctx context.Context) ([]cm.Parcel, error)
	Services(ctx context.Context) ([]cm.Service, error)
	RoleConfigGroups(ctx context.Context, service string) ([]cm.RoleConfigGroup, error)
	ManagementService(ctx context.Context) (cm.Service, error)
}

// Management is everything the workflow needs from the management plane.
type Management interface {
	bringup.ManagementClient
	Inventory
}

var _ Management = (*cm.Client)(nil)

// HealthChecker reports a container's health status, e.g. "healthy".
type HealthChecker interface {
	Health(ctx context.Context, container string) (string, error)
}

// Reconciler builds and runs the bring-up workflow for one cluster.
type Reconciler struct {
	mgmt     Management
	nodes    node.Transport
	health   HealthChecker
	config   *config.Config
	registry *cluster.Registry
	logger   logr.Logger

	// cmdTimeout bounds each node command; zero means no bound.
	cmdTimeout time.Duration

	// byFQDN indexes configured nodes, which carry the transport addressing.
	byFQDN map[string]config.NodeConfig
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithNodes sets the transport used for node operations. Without it node
// operations are skipped.
func WithNodes(t node.Transport) Option {
	return func(r *Reconciler) { r.nodes = t }
}

// WithHealthChecker sets the container health source used by the readiness
// gate when manager.useContainerHealth is set.
func WithHealthChecker(h HealthChecker) Option {
	return func(r *Reconciler) { r.health = h }
}

// WithNodeCommandTimeout bounds every command run on a node.
func WithNodeCommandTimeout(d time.Duration) Option {
	return func(r *Reconciler) { r.cmdTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// NewReconciler creates a reconciler for cfg, which must have defaults
// applied and be valid.
func NewReconciler(mgmt Management, cfg *config.Config, opts ...Option) (*Reconciler, error) {
	if mgmt == nil {
		return nil, fmt.Errorf("management client is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	nodes := make([]cluster.Node, 0, len(cfg.Cluster.Nodes))
	byFQDN := make(map[string]config.NodeConfig, len(cfg.Cluster.Nodes))
	for _, n := range cfg.Cluster.Nodes {
		nodes = append(nodes, cluster.Node{Hostname: n.Hostname, FQDN: n.FQDN, Group: n.Group, IP: n.IP})
		byFQDN[n.FQDN] = n
	}
	registry, err := cluster.NewRegistry(cfg.Cluster.Name, nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to build node registry: %w", err)
	}

	r := &Reconciler{
		mgmt:     mgmt,
		nodes:    node.None{},
		config:   cfg,
		registry: registry,
		logger:   logr.Discard(),
		byFQDN:   byFQDN,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Registry returns the node registry. Host IDs are associated during the
// register-hosts phase.
func (r *Reconciler) Registry() *cluster.Registry { return r.registry }

// Phases returns the workflow in execution order.
func (r *Reconciler) Phases() []bringup.Phase {
	cfg := r.config
	var phases []bringup.Phase
	add := func(p bringup.Phase, ok bool) {
		if ok && len(p.Operations) > 0 {
			phases = append(phases, p)
		}
	}

	add(r.removeStaleStatePhase(), true)
	add(r.prepareNodesPhase(), !cfg.NodeAgent.Skip)
	add(r.nodeCommandsPhase(PhasePrepareCommands, config.StagePrepare), true)
	add(r.awaitManagerPhase(), true)
	add(r.stopManagementPhase(), cfg.ManagementService.StopFirst)
	add(r.registerHostsPhase(), true)
	add(r.parcelPhase(), !cfg.Parcel.Skip)
	add(r.hostTemplatesPhase(), len(cfg.HostTemplates) > 0)
	add(r.serviceConfigurationPhase(), true)
	add(r.clientConfigurationPhase(), !cfg.ClientConfig.Skip)
	add(r.startServicesPhase(), !cfg.Services.DontStart)
	add(r.startManagementPhase(), !cfg.Services.DontStart && !cfg.ManagementService.DontStart)
	add(r.validateHealthPhase(), cfg.HealthCheck.Enabled && !cfg.Services.DontStart)
	add(r.nodeCommandsPhase(PhasePostCommands, config.StagePost), true)
	return phases
}

// Reconcile runs the workflow. The returned run is complete even on error.
func (r *Reconciler) Reconcile(ctx context.Context, opts ...bringup.RunnerOption) (*bringup.Run, error) {
	phases := r.Phases()
	r.logger.Info("Starting bring-up", "cluster", r.config.Cluster.Name, "phases", len(phases), "nodes", len(r.config.Cluster.Nodes))

	base := []bringup.RunnerOption{
		bringup.WithDefaultPoll(r.config.Polling),
		bringup.WithLogger(r.logger),
	}
	runner := bringup.NewRunner(r.mgmt, append(base, opts...)...)
	start := time.Now()
	run, err := runner.Run(ctx, phases)
	if err != nil {
		return run, err
	}
	r.logger.Info("Cluster is up", "cluster", r.config.Cluster.Name, "elapsed", time.Since(start).Round(time.Second))
	return run, nil
}

// exec runs command on the node with fqdn.
func (r *Reconciler) exec(ctx context.Context, fqdn, command string) (string, error) {
	if r.cmdTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cmdTimeout)
		defer cancel()
	}
	return r.nodes.Exec(ctx, r.target(fqdn), command)
}

// target returns the transport addressing for the node with fqdn.
func (r *Reconciler) target(fqdn string) node.Target {
	n := r.byFQDN[fqdn]
	return node.Target{Name: fqdn, Address: n.Address, Container: n.Container}
}

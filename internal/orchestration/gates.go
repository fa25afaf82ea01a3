package orchestration

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/imamik/bringup/internal/bringup"
	"github.com/imamik/bringup/internal/platform/cm"
	"github.com/imamik/bringup/internal/platform/docker"
	"github.com/imamik/bringup/internal/util/netutil"
	"github.com/imamik/bringup/internal/util/poll"
)

// awaitManagerPhase waits for the management server. With container health
// enabled it waits for the primary node's container to be healthy,
// otherwise for the API to answer.
func (r *Reconciler) awaitManagerPhase() bringup.Phase {
	op := bringup.Operation{
		Kind: bringup.KindWaitCondition,
		Poll: r.config.Manager.Ready,
	}

	if r.config.Manager.UseContainerHealth && r.health != nil {
		primary := r.target(r.registry.Primary().FQDN)
		op.Target = "manager container " + primary.Container
		op.Watch = func(ctx context.Context) (poll.Result, error) {
			status, err := r.health.Health(ctx, primary.Container)
			if err != nil {
				return poll.Result{}, err
			}
			r.logger.V(1).Info("Manager container health", "container", primary.Container, "status", status)
			if status == docker.HealthHealthy {
				return poll.Success(), nil
			}
			return poll.StillPending(), nil
		}
	} else {
		address, addrErr := netutil.HostPort(r.config.Manager.URL)
		op.Target = "manager api"
		op.Watch = func(ctx context.Context) (poll.Result, error) {
			if addrErr != nil {
				return poll.Failure(addrErr.Error()), nil
			}
			if err := netutil.Reachable(ctx, address, 0); err != nil {
				return poll.Result{}, err
			}
			version, err := r.mgmt.Version(ctx)
			if err != nil {
				return poll.Result{}, err
			}
			r.logger.V(1).Info("Manager is answering", "url", r.config.Manager.URL, "version", version)
			return poll.Success(), nil
		}
	}

	return bringup.Phase{Name: PhaseAwaitManager, Operations: []bringup.Operation{op}}
}

// validateHealthPhase waits until every cluster service and the management
// service are STARTED and GOOD, or report no state.
func (r *Reconciler) validateHealthPhase() bringup.Phase {
	op := bringup.Operation{
		Kind:   bringup.KindWaitCondition,
		Target: "service health",
		Poll:   r.config.HealthCheck.Wait,
		Watch: func(ctx context.Context) (poll.Result, error) {
			services, err := r.mgmt.Services(ctx)
			if err != nil {
				return poll.Result{}, err
			}
			mgmt, err := r.mgmt.ManagementService(ctx)
			if err != nil {
				return poll.Result{}, err
			}
			poor := unhealthyServices(append(services, mgmt))
			if len(poor) == 0 {
				return poll.Success(), nil
			}
			r.logger.V(1).Info("Services with poor health", "services", strings.Join(poor, ", "))
			return poll.StillPending(), nil
		},
	}
	return bringup.Phase{Name: PhaseValidateHealth, Operations: []bringup.Operation{op}}
}

// unhealthyServices returns, sorted, the services that are neither in state
// NA nor STARTED with GOOD health.
func unhealthyServices(services []cm.Service) []string {
	var out []string
	for _, svc := range services {
		if svc.ServiceState == cm.ServiceStateNA {
			continue
		}
		if svc.ServiceState == cm.ServiceStarted && svc.HealthSummary == cm.HealthGood {
			continue
		}
		out = append(out, fmt.Sprintf("%s (%s/%s)", svc.Name, svc.ServiceState, svc.HealthSummary))
	}
	sort.Strings(out)
	return out
}

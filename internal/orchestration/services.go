package orchestration

import (
	"context"

	"github.com/imamik/bringup/internal/bringup"
	"github.com/imamik/bringup/internal/config"
	"github.com/imamik/bringup/internal/platform/cm"
	"github.com/imamik/bringup/internal/util/poll"
)

// ClientConfigUnavailable is the remote message accepted as success when
// deploying client configuration: there is nothing to deploy yet.
const ClientConfigUnavailable = "not currently available for execution"

func (r *Reconciler) stopManagementPhase() bringup.Phase {
	return bringup.Phase{
		Name: PhaseStopManagementService,
		Operations: []bringup.Operation{
			r.commandOperation(bringup.KindStopManagementService, "", nil, r.config.ManagementService.Wait),
		},
	}
}

func (r *Reconciler) clientConfigurationPhase() bringup.Phase {
	op := r.commandOperation(bringup.KindDeployClientConfig, r.config.Cluster.Name, nil, r.config.ClientConfig.Wait)
	op.Override = bringup.AcceptMessage("deploy-not-available", ClientConfigUnavailable)
	return bringup.Phase{Name: PhaseClientConfiguration, Operations: []bringup.Operation{op}}
}

// startServicesPhase runs each service's commands in the configured order.
// Skipped services are kept in the phase so that reports show them.
func (r *Reconciler) startServicesPhase() bringup.Phase {
	phase := bringup.Phase{Name: PhaseStartServices}
	for _, svc := range r.config.Services.Start {
		if svc.Skip {
			phase.Operations = append(phase.Operations, skippedService(svc))
			continue
		}
		for _, command := range svc.Commands {
			params := cm.ServiceCommandParams{Service: svc.Name, Command: command}
			phase.Operations = append(phase.Operations,
				r.commandOperation(bringup.KindStartService, serviceTarget(svc.Name, command), params, r.config.Services.Wait))
		}
	}
	return phase
}

func skippedService(svc config.ServiceStart) bringup.Operation {
	return bringup.Operation{
		Kind:   bringup.KindStartService,
		Target: svc.Name,
		Submit: func(context.Context, *bringup.Run) (bringup.Submission, error) {
			return bringup.Skip("disabled in configuration"), nil
		},
	}
}

func serviceTarget(service, command string) string {
	if command == config.DefaultServiceStartVerb {
		return service
	}
	return service + " " + command
}

func (r *Reconciler) startManagementPhase() bringup.Phase {
	return bringup.Phase{
		Name: PhaseStartManagementService,
		Operations: []bringup.Operation{
			r.commandOperation(bringup.KindStartManagementService, "", nil, r.config.ManagementService.Wait),
		},
	}
}

// commandOperation submits an asynchronous command and polls its handle.
func (r *Reconciler) commandOperation(kind bringup.Kind, target string, params any, wait poll.Spec) bringup.Operation {
	return bringup.Operation{
		Kind:   kind,
		Target: target,
		Poll:   wait,
		Submit: func(ctx context.Context, _ *bringup.Run) (bringup.Submission, error) {
			r.logger.Info("Submitting command", "kind", kind, "target", target)
			handle, err := r.mgmt.Submit(ctx, kind, params)
			if err != nil {
				return bringup.Submission{}, err
			}
			return bringup.Submitted(handle), nil
		},
	}
}

package orchestration

import (
	"context"
	"fmt"
	"strconv"

	"github.com/imamik/bringup/internal/bringup"
	"github.com/imamik/bringup/internal/platform/cm"
)

// Service types whose database host points at the database node.
const (
	serviceTypeHive   = "HIVE"
	serviceTypeHue    = "HUE"
	serviceTypeOozie  = "OOZIE"
	serviceTypeSentry = "SENTRY"

	roleTypeOozieServer = "OOZIE_SERVER"
)

// databaseHostKeys maps service types configured at service level to the
// key holding their database host.
var databaseHostKeys = map[string]string{
	serviceTypeHive:   "hive_metastore_database_host",
	serviceTypeHue:    "database_host",
	serviceTypeSentry: "sentry_server_database_host",
}

const oozieDatabaseHostKey = "oozie_database_host"

// serviceConfigurationPhase points service databases at the database host
// and applies the configured updates. The updates are synchronous and
// independent.
func (r *Reconciler) serviceConfigurationPhase() bringup.Phase {
	phase := bringup.Phase{Name: PhaseServiceConfiguration, Parallel: true}
	cfg := r.config

	if !cfg.Databases.Skip {
		for _, svcType := range []string{serviceTypeHive, serviceTypeHue, serviceTypeSentry} {
			phase.Operations = append(phase.Operations, r.databaseHostOperation(svcType))
		}
		phase.Operations = append(phase.Operations, r.oozieDatabaseOperation())
	}

	if len(cfg.Configuration.Management) > 0 {
		values := cfg.Configuration.Management
		phase.Operations = append(phase.Operations, r.syncOperation(
			bringup.KindUpdateManagementConfig, "manager", fmt.Sprintf("%d setting(s)", len(values)),
			cm.ManagementConfigParams{Config: values},
		))
	}
	for _, u := range cfg.Configuration.Services {
		phase.Operations = append(phase.Operations, r.syncOperation(
			bringup.KindUpdateServiceConfig, u.Service, fmt.Sprintf("%d setting(s)", len(u.Config)),
			cm.ServiceConfigParams{Service: u.Service, Config: u.Config},
		))
	}
	for _, u := range cfg.Configuration.RoleConfigGroups {
		phase.Operations = append(phase.Operations, r.syncOperation(
			bringup.KindUpdateRoleGroupConfig, u.Service+"/"+u.Group, fmt.Sprintf("%d setting(s)", len(u.Config)),
			cm.RoleConfigGroupParams{Service: u.Service, Group: u.Group, Config: u.Config},
		))
	}
	return phase
}

// syncOperation submits a synchronous update with fixed parameters.
func (r *Reconciler) syncOperation(kind bringup.Kind, target, note string, params any) bringup.Operation {
	return bringup.Operation{
		Kind:   kind,
		Target: target,
		Submit: func(ctx context.Context, _ *bringup.Run) (bringup.Submission, error) {
			r.logger.Info("Updating configuration", "kind", kind, "target", target)
			if _, err := r.mgmt.Submit(ctx, kind, params); err != nil {
				return bringup.Submission{}, err
			}
			return bringup.Completed(note), nil
		},
	}
}

// databaseHostOperation sets the database host of every service of svcType.
func (r *Reconciler) databaseHostOperation(svcType string) bringup.Operation {
	key := databaseHostKeys[svcType]
	return bringup.Operation{
		Kind:   bringup.KindUpdateServiceConfig,
		Target: svcType + " database",
		Submit: func(ctx context.Context, _ *bringup.Run) (bringup.Submission, error) {
			services, err := r.servicesOfType(ctx, svcType)
			if err != nil {
				return bringup.Submission{}, err
			}
			if len(services) == 0 {
				return bringup.Skip("no " + svcType + " service"), nil
			}
			values := map[string]string{key: r.config.Databases.Host}
			for _, svc := range services {
				r.logger.Info("Updating database host", "service", svc.Name, "host", r.config.Databases.Host)
				params := cm.ServiceConfigParams{Service: svc.Name, Config: values}
				if _, err := r.mgmt.Submit(ctx, bringup.KindUpdateServiceConfig, params); err != nil {
					return bringup.Submission{}, fmt.Errorf("service %s: %w", svc.Name, err)
				}
			}
			return bringup.Completed(fmt.Sprintf("%s=%s on %d service(s)", key, r.config.Databases.Host, len(services))), nil
		},
	}
}

// oozieDatabaseOperation sets the database host:port on every OOZIE_SERVER
// role config group.
func (r *Reconciler) oozieDatabaseOperation() bringup.Operation {
	value := r.config.Databases.Host + ":" + strconv.Itoa(r.config.Databases.Port)
	return bringup.Operation{
		Kind:   bringup.KindUpdateRoleGroupConfig,
		Target: serviceTypeOozie + " database",
		Submit: func(ctx context.Context, _ *bringup.Run) (bringup.Submission, error) {
			services, err := r.servicesOfType(ctx, serviceTypeOozie)
			if err != nil {
				return bringup.Submission{}, err
			}
			updated := 0
			for _, svc := range services {
				groups, err := r.mgmt.RoleConfigGroups(ctx, svc.Name)
				if err != nil {
					return bringup.Submission{}, fmt.Errorf("failed to list role config groups of %s: %w", svc.Name, err)
				}
				for _, g := range groups {
					if g.RoleType != roleTypeOozieServer {
						continue
					}
					params := cm.RoleConfigGroupParams{
						Service: svc.Name,
						Group:   g.Name,
						Config:  map[string]string{oozieDatabaseHostKey: value},
					}
					if _, err := r.mgmt.Submit(ctx, bringup.KindUpdateRoleGroupConfig, params); err != nil {
						return bringup.Submission{}, fmt.Errorf("role config group %s/%s: %w", svc.Name, g.Name, err)
					}
					updated++
				}
			}
			if updated == 0 {
				return bringup.Skip("no " + roleTypeOozieServer + " role config group"), nil
			}
			return bringup.Completed(fmt.Sprintf("%s=%s on %d group(s)", oozieDatabaseHostKey, value, updated)), nil
		},
	}
}

func (r *Reconciler) servicesOfType(ctx context.Context, svcType string) ([]cm.Service, error) {
	all, err := r.mgmt.Services(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	var out []cm.Service
	for _, svc := range all {
		if svc.Type == svcType {
			out = append(out, svc)
		}
	}
	return out, nil
}

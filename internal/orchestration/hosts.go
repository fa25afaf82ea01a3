package orchestration

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/imamik/bringup/internal/bringup"
	"github.com/imamik/bringup/internal/config"
	"github.com/imamik/bringup/internal/platform/cm"
	"github.com/imamik/bringup/internal/util/poll"
	"github.com/imamik/bringup/internal/util/retry"
)

// registerHostsPhase adds every host known to the management plane that is
// not yet a cluster member. Each known host must correlate with a node.
func (r *Reconciler) registerHostsPhase() bringup.Phase {
	hosts := bringup.HostSet{
		Kind:   bringup.KindRegisterHosts,
		Target: r.config.Cluster.Name,
		Output: OutputAddedHosts,
		Desired: func(ctx context.Context, _ *bringup.Run) (sets.Set[string], error) {
			known, err := r.mgmt.Hosts(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list hosts: %w", err)
			}
			ids := sets.New[string]()
			for _, h := range known {
				n, err := r.registry.Resolve(h.Hostname)
				if err != nil {
					return nil, retry.Fatal(err)
				}
				if err := r.registry.Associate(n.FQDN, h.HostID); err != nil {
					return nil, retry.Fatal(err)
				}
				ids.Insert(h.HostID)
			}
			if missing := r.registry.Unassociated(); len(missing) > 0 {
				r.logger.Info("Nodes not yet known to the management server", "nodes", strings.Join(missing, ", "))
			}
			return ids, nil
		},
		Present: func(ctx context.Context, _ *bringup.Run) (sets.Set[string], error) {
			members, err := r.mgmt.ClusterHosts(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list cluster hosts: %w", err)
			}
			return hostIDs(members), nil
		},
		Apply: func(ctx context.Context, ids []string) (bringup.Handle, error) {
			r.logger.Info("Adding hosts to cluster", "cluster", r.config.Cluster.Name, "hosts", strings.Join(ids, ", "))
			return r.mgmt.Submit(ctx, bringup.KindRegisterHosts, cm.RegisterHostsParams{HostIDs: ids})
		},
	}
	return bringup.Phase{Name: PhaseRegisterHosts, Operations: []bringup.Operation{hosts.Operation()}}
}

// parcelPhase waits for the platform parcel to become ACTIVATED. The parcel
// is looked up first; a missing parcel is a configuration mismatch.
func (r *Reconciler) parcelPhase() bringup.Phase {
	cfg := r.config.Parcel
	var version string

	lookup := bringup.Operation{
		Kind:   bringup.KindWaitCondition,
		Target: "parcel " + cfg.Product,
		Submit: func(ctx context.Context, _ *bringup.Run) (bringup.Submission, error) {
			parcels, err := r.mgmt.Parcels(ctx)
			if err != nil {
				return bringup.Submission{}, fmt.Errorf("failed to list parcels: %w", err)
			}
			p, ok := findParcel(parcels, cfg)
			if !ok {
				key := cfg.Product
				if cfg.Version != "" {
					key += " " + cfg.Version
				}
				return bringup.Submission{}, retry.Fatal(&bringup.LookupError{Entity: "activating or activated parcel", Key: key})
			}
			version = p.Version
			return bringup.Completed(fmt.Sprintf("%s %s is %s", p.Product, p.Version, p.Stage)), nil
		},
	}

	activated := bringup.Operation{
		Kind:   bringup.KindWaitCondition,
		Target: "parcel " + cfg.Product + " activated",
		Poll:   cfg.Wait,
		Watch: func(ctx context.Context) (poll.Result, error) {
			parcels, err := r.mgmt.Parcels(ctx)
			if err != nil {
				return poll.Result{}, err
			}
			for _, p := range parcels {
				if p.Product == cfg.Product && p.Version == version {
					r.logger.V(1).Info("Parcel stage", "product", p.Product, "version", p.Version, "stage", p.Stage)
					if p.Stage == cm.ParcelActivated {
						return poll.Success(), nil
					}
					return poll.StillPending(), nil
				}
			}
			return poll.Failure(fmt.Sprintf("parcel %s %s is no longer listed", cfg.Product, version)), nil
		},
	}

	return bringup.Phase{Name: PhaseActivateParcel, Operations: []bringup.Operation{lookup, activated}}
}

// findParcel returns the configured parcel. Without a configured version,
// the first parcel of the product that is activating or activated is used.
func findParcel(parcels []cm.Parcel, cfg config.ParcelConfig) (cm.Parcel, bool) {
	for _, p := range parcels {
		if p.Product != cfg.Product {
			continue
		}
		if cfg.Version != "" {
			if p.Version == cfg.Version {
				return p, true
			}
			continue
		}
		if p.Stage == cm.ParcelActivating || p.Stage == cm.ParcelActivated {
			return p, true
		}
	}
	return cm.Parcel{}, false
}

// hostTemplatesPhase creates the missing host templates, then applies each
// one to the nodes of its group that do not carry its roles yet.
func (r *Reconciler) hostTemplatesPhase() bringup.Phase {
	templates := r.config.HostTemplates
	byName := make(map[string]config.HostTemplate, len(templates))
	for _, t := range templates {
		byName[t.Name] = t
	}

	create := bringup.HostSet{
		Kind:   bringup.KindCreateHostTemplate,
		Target: r.config.Cluster.Name,
		Output: OutputCreatedTemplates,
		Desired: func(context.Context, *bringup.Run) (sets.Set[string], error) {
			return sets.KeySet(byName), nil
		},
		Present: func(ctx context.Context, _ *bringup.Run) (sets.Set[string], error) {
			existing, err := r.mgmt.HostTemplates(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list host templates: %w", err)
			}
			names := sets.New[string]()
			for _, t := range existing {
				names.Insert(t.Name)
			}
			return names, nil
		},
		Apply: func(ctx context.Context, names []string) (bringup.Handle, error) {
			for _, name := range names {
				r.logger.Info("Creating host template", "template", name, "roleConfigGroups", strings.Join(byName[name].RoleConfigGroups, ", "))
				params := cm.CreateHostTemplateParams{Name: name, RoleConfigGroups: byName[name].RoleConfigGroups}
				if _, err := r.mgmt.Submit(ctx, bringup.KindCreateHostTemplate, params); err != nil {
					return bringup.NoHandle, fmt.Errorf("host template %s: %w", name, err)
				}
			}
			return bringup.NoHandle, nil
		},
	}

	ops := []bringup.Operation{create.Operation()}
	for _, t := range templates {
		ops = append(ops, r.applyTemplate(t).Operation())
	}
	return bringup.Phase{Name: PhaseHostTemplates, Operations: ops}
}

func (r *Reconciler) applyTemplate(t config.HostTemplate) bringup.HostSet {
	prefixes := rolePrefixes(t.RoleConfigGroups)
	return bringup.HostSet{
		Kind:   bringup.KindApplyHostTemplate,
		Target: t.Name,
		Output: OutputAppliedPrefix + t.Name,
		Poll:   r.config.Polling,
		Desired: func(context.Context, *bringup.Run) (sets.Set[string], error) {
			return r.registry.GroupIDs(t.Group), nil
		},
		Present: func(ctx context.Context, _ *bringup.Run) (sets.Set[string], error) {
			hosts, err := r.mgmt.Hosts(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list hosts: %w", err)
			}
			ids := sets.New[string]()
			for _, h := range hosts {
				if carriesRoles(h, prefixes) {
					ids.Insert(h.HostID)
				}
			}
			return ids, nil
		},
		Apply: func(ctx context.Context, ids []string) (bringup.Handle, error) {
			r.logger.Info("Applying host template", "template", t.Name, "hosts", strings.Join(ids, ", "))
			return r.mgmt.Submit(ctx, bringup.KindApplyHostTemplate, cm.ApplyHostTemplateParams{
				Template: t.Name,
				HostIDs:  ids,
			})
		},
	}
}

// rolePrefixes maps role config group names to the prefix of the role names
// created from them: "hdfs-DATANODE-BASE" creates "hdfs-DATANODE-<id>".
func rolePrefixes(groups []string) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, strings.TrimSuffix(g, "BASE"))
	}
	return out
}

// carriesRoles reports whether h has a role created from any of prefixes.
func carriesRoles(h cm.Host, prefixes []string) bool {
	for _, ref := range h.RoleRefs {
		for _, p := range prefixes {
			if strings.HasPrefix(ref.RoleName, p) {
				return true
			}
		}
	}
	return false
}

func hostIDs(hosts []cm.Host) sets.Set[string] {
	ids := sets.New[string]()
	for _, h := range hosts {
		ids.Insert(h.HostID)
	}
	return ids
}

package orchestration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/imamik/bringup/internal/agentconfig"
	"github.com/imamik/bringup/internal/bringup"
	"github.com/imamik/bringup/internal/cluster"
	"github.com/imamik/bringup/internal/config"
	"github.com/imamik/bringup/internal/platform/node"
	"github.com/imamik/bringup/internal/util/retry"
)

const noTransportNote = "no node transport configured"

// removeStaleStatePhase removes the cloned identity and data of secondary
// nodes. It precedes prepare-nodes: an agent restarted before the removal
// heartbeats with the identity of the node it was cloned from.
func (r *Reconciler) removeStaleStatePhase() bringup.Phase {
	phase := bringup.Phase{Name: PhaseRemoveStaleState, Parallel: true}
	stale := r.config.NodeAgent.StaleState
	if len(stale.Paths) == 0 {
		return phase
	}
	for _, n := range r.staleNodes() {
		phase.Operations = append(phase.Operations, r.staleStateOperation(n, stale.Paths))
	}
	return phase
}

// prepareNodesPhase rewrites every node agent's configuration. Nodes are
// independent, so it runs in parallel.
func (r *Reconciler) prepareNodesPhase() bringup.Phase {
	phase := bringup.Phase{Name: PhasePrepareNodes, Parallel: true}
	for _, n := range r.registry.Nodes() {
		phase.Operations = append(phase.Operations, r.agentConfigOperation(n))
	}
	return phase
}

// staleNodes returns the nodes of the stale-state group, without the first
// one unless keepFirst is disabled.
func (r *Reconciler) staleNodes() []cluster.Node {
	stale := r.config.NodeAgent.StaleState
	var members []cluster.Node
	for _, n := range r.registry.Nodes() {
		if n.Group == stale.Group {
			members = append(members, n)
		}
	}
	if len(members) > 0 && (stale.KeepFirst == nil || *stale.KeepFirst) {
		members = members[1:]
	}
	return members
}

func (r *Reconciler) agentConfigOperation(n cluster.Node) bringup.Operation {
	agent := r.config.NodeAgent
	settings := agentconfig.Settings{
		ServerHost:          r.registry.Primary().FQDN,
		ListeningIP:         n.IP,
		ListeningHostname:   n.FQDN,
		ReportedHostname:    n.FQDN,
		FilesystemWhitelist: agent.FilesystemWhitelist,
	}
	target := r.target(n.FQDN)

	return bringup.Operation{
		Kind:   bringup.KindNodeAgentConfig,
		Target: n.FQDN,
		Submit: func(ctx context.Context, _ *bringup.Run) (bringup.Submission, error) {
			current, err := r.readNodeFile(ctx, target, agent.ConfigPath)
			if errors.Is(err, node.ErrNoTransport) {
				return bringup.Skip(noTransportNote), nil
			}
			if err != nil {
				return bringup.Submission{}, err
			}

			updated, err := agentconfig.Apply(current, settings)
			if err != nil {
				return bringup.Submission{}, fmt.Errorf("failed to update %s on %s: %w", agent.ConfigPath, n.FQDN, err)
			}
			if bytes.Equal(current, updated) {
				return bringup.Skip("agent already configured"), nil
			}

			r.logger.Info("Updating node agent configuration", "node", n.FQDN, "serverHost", settings.ServerHost)
			if err := r.nodes.WriteFile(ctx, target, agent.ConfigPath, updated); err != nil {
				return bringup.Submission{}, fmt.Errorf("failed to write %s on %s: %w", agent.ConfigPath, n.FQDN, err)
			}
			note := "rewrote " + agent.ConfigPath
			if agent.RestartCommand != "" {
				if _, err := r.exec(ctx, n.FQDN, agent.RestartCommand); err != nil {
					return bringup.Submission{}, fmt.Errorf("failed to restart agent on %s: %w", n.FQDN, err)
				}
				note += ", restarted agent"
			}
			return bringup.Completed(note), nil
		},
	}
}

func (r *Reconciler) staleStateOperation(n cluster.Node, paths []string) bringup.Operation {
	command := node.RemoveCommand(paths)
	return bringup.Operation{
		Kind:   bringup.KindNodeCommand,
		Target: n.FQDN + " stale-state",
		Submit: func(ctx context.Context, _ *bringup.Run) (bringup.Submission, error) {
			r.logger.Info("Removing stale state", "node", n.FQDN, "paths", strings.Join(paths, ", "))
			_, err := r.exec(ctx, n.FQDN, command)
			if errors.Is(err, node.ErrNoTransport) {
				return bringup.Skip(noTransportNote), nil
			}
			if err != nil {
				return bringup.Submission{}, err
			}
			return bringup.Completed(command), nil
		},
	}
}

// nodeCommandsPhase runs the configured commands of stage, in order.
func (r *Reconciler) nodeCommandsPhase(name, stage string) bringup.Phase {
	phase := bringup.Phase{Name: name}
	for _, c := range r.config.NodeCommands {
		if c.Stage == stage {
			phase.Operations = append(phase.Operations, r.nodeCommandOperation(c))
		}
	}
	return phase
}

func (r *Reconciler) nodeCommandOperation(c config.NodeCommand) bringup.Operation {
	return bringup.Operation{
		Kind:   bringup.KindNodeCommand,
		Target: fmt.Sprintf("%s (%s)", c.Command, c.Nodes),
		Submit: func(ctx context.Context, _ *bringup.Run) (bringup.Submission, error) {
			nodes := r.selectNodes(c.Nodes)
			if len(nodes) == 0 {
				return bringup.Skip(fmt.Sprintf("no nodes match %q", c.Nodes)), nil
			}
			names := make([]string, 0, len(nodes))
			for _, n := range nodes {
				r.logger.V(1).Info("Running node command", "node", n.FQDN, "command", c.Command)
				_, err := r.exec(ctx, n.FQDN, c.Command)
				if errors.Is(err, node.ErrNoTransport) {
					return bringup.Skip(noTransportNote), nil
				}
				if err != nil {
					return bringup.Submission{}, err
				}
				names = append(names, n.FQDN)
			}
			return bringup.Completed("ran on " + strings.Join(names, ", ")), nil
		},
	}
}

// selectNodes resolves a node selector: "all", "primary-node",
// "secondary-nodes" or a group name.
func (r *Reconciler) selectNodes(selector string) []cluster.Node {
	switch selector {
	case config.NodesAll:
		return r.registry.Nodes()
	case config.NodesPrimary:
		return []cluster.Node{r.registry.Primary()}
	case config.NodesSecondary:
		return r.registry.Secondaries()
	}
	var out []cluster.Node
	for _, n := range r.registry.Nodes() {
		if n.Group == selector {
			out = append(out, n)
		}
	}
	return out
}

// readNodeFile reads a file from a node, retrying transient transport
// errors. Missing files and a missing transport are not retried.
func (r *Reconciler) readNodeFile(ctx context.Context, target node.Target, path string) ([]byte, error) {
	var data []byte
	err := retry.Do(ctx, func() error {
		var err error
		data, err = r.nodes.ReadFile(ctx, target, path)
		if errors.Is(err, node.ErrNoTransport) || errors.Is(err, fs.ErrNotExist) {
			return retry.Fatal(err)
		}
		return err
	},
		retry.WithMaxRetries(max(r.config.Retry.MaxAttempts-1, 0)),
		retry.WithInitialDelay(r.config.Retry.InitialDelay),
		retry.WithOnRetry(func(attempt int, err error) {
			r.logger.V(1).Info("Retrying node file read", "node", target.Name, "path", path, "attempt", attempt, "error", err.Error())
		}),
	)
	if err != nil {
		if retry.IsFatal(err) {
			err = errors.Unwrap(err)
		}
		return nil, fmt.Errorf("failed to read %s on %s: %w", path, target.Name, err)
	}
	return data, nil
}

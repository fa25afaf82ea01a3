// Package orchestration turns a bring-up configuration into the ordered
// phases executed by the bringup runner.
//
// # Workflow
//
// The Reconciler builds the following phases, omitting those disabled in the
// configuration:
//  1. remove-stale-state - cloned identity and data of secondary nodes
//  2. prepare-nodes - node agent configuration and restart
//  3. prepare-commands - node commands of the "prepare" stage
//  4. await-manager - management server readiness gate
//  5. stop-management-service - optional stop before registration
//  6. register-hosts - add every known host to the cluster
//  7. activate-parcel - wait for the platform parcel to be ACTIVATED
//  8. host-templates - create templates and apply them to node groups
//  9. service-configuration - database hosts and configured overrides
//  10. client-configuration - deploy client configuration
//  11. start-services - ordered service commands
//  12. start-management-service
//  13. validate-health - optional service health gate
//  14. post-commands - node commands of the "post" stage
//
// # Usage
//
//	reconciler, err := orchestration.NewReconciler(client, cfg, orchestration.WithNodes(transport))
//	run, err := reconciler.Reconcile(ctx)
//
// Every phase is idempotent: running the workflow again against a partially
// brought up cluster only does what is missing.
package orchestration

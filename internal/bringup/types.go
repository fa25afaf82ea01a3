package bringup

import "context"

// Kind identifies the type of remote operation.
type Kind string

const (
	KindRegisterHosts          Kind = "register-hosts-to-cluster"
	KindCreateHostTemplate     Kind = "create-host-grouping-template"
	KindApplyHostTemplate      Kind = "apply-host-grouping-template"
	KindUpdateServiceConfig    Kind = "update-service-configuration"
	KindUpdateRoleGroupConfig  Kind = "update-service-subcomponent-configuration"
	KindUpdateManagementConfig Kind = "update-management-configuration"
	KindDeployClientConfig     Kind = "deploy-client-configuration"
	KindStartService           Kind = "start-service"
	KindStartManagementService Kind = "start-management-service"
	KindStopManagementService  Kind = "stop-management-service"

	// Operations that do not go through the management plane.
	KindNodeCommand     Kind = "node-command"
	KindNodeAgentConfig Kind = "node-agent-configuration"
	KindWaitCondition   Kind = "wait-condition"
)

// Handle is the opaque identifier the remote system assigns to a submitted
// operation.
type Handle string

// NoHandle is returned by submissions that completed synchronously.
const NoHandle Handle = ""

// RemoteStatus is what the management plane reports for a handle.
type RemoteStatus struct {
	Active  bool
	Success bool
	Message string
}

// StatusReader queries the status of a submitted operation.
type StatusReader interface {
	OperationStatus(ctx context.Context, handle Handle) (RemoteStatus, error)
}

// ManagementClient is the remote management plane as seen by the workflow.
// params is kind specific; see the cm package for the concrete types.
type ManagementClient interface {
	StatusReader
	Submit(ctx context.Context, kind Kind, params any) (Handle, error)
}

// OperationStatus is the state of one operation within a run.
type OperationStatus string

const (
	OperationPending   OperationStatus = "PENDING"
	OperationActive    OperationStatus = "ACTIVE"
	OperationSucceeded OperationStatus = "SUCCEEDED"
	OperationFailed    OperationStatus = "FAILED"
	OperationTimedOut  OperationStatus = "TIMED_OUT"
	OperationSkipped   OperationStatus = "SKIPPED"
	OperationCanceled  OperationStatus = "CANCELED"
)

// PhaseStatus is the terminal outcome of a phase.
type PhaseStatus string

const (
	PhaseSucceeded PhaseStatus = "SUCCEEDED"
	PhaseFailed    PhaseStatus = "FAILED"
	PhaseAborted   PhaseStatus = "ABORTED"
)

// RunStatus is the state of a whole bring-up run.
type RunStatus string

const (
	RunNotStarted RunStatus = "NOT_STARTED"
	RunRunning    RunStatus = "RUNNING"
	RunSucceeded  RunStatus = "SUCCEEDED"
	RunAborted    RunStatus = "ABORTED"
)

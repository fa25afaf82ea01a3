// Package cm is a client for the cluster management REST API (API v14
// layout). It implements bringup.ManagementClient: every mutating call is a
// typed Submit, every asynchronous one returns a command handle that is
// polled through OperationStatus.
//
// Read-only inventory calls are retried with backoff; submissions never are.
package cm

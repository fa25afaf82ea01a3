// Package bringup sequences the remote operations that take a cluster from
// freshly started to fully operational.
//
// # Model
//
// A [Phase] is an ordered list of [Operation]s. Phases run strictly in
// declaration order, one at a time, each gated by a precondition on the
// phases before it. An operation either submits a command to the remote
// management plane and waits on the returned [Handle], or waits on a
// condition directly. All waiting goes through [poll.Await].
//
// # Failure policy
//
// The first failed phase aborts the run: later phases are recorded as
// ABORTED and never execute. Failures are classified by [Classify] into
// operation failures, timeouts, lookup (configuration mismatch) errors,
// submission errors, unmet preconditions and cancellation. Nothing is
// retried across phases; host-set operations are idempotent so a failed
// bring-up can simply be invoked again.
package bringup

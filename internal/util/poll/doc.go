// Package poll turns an asynchronous remote operation into a blocking call.
//
// [Await] repeatedly runs a probe, classifies each observation with a
// predicate and returns once the predicate reports success (optionally held
// for a stability window), reports failure, the timeout elapses or the
// context is cancelled. Probe errors are treated as transient and never end
// an episode on their own.
package poll

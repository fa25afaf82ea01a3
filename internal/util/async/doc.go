// Package async runs independent tasks concurrently and joins their errors.
//
// The bring-up workflow uses [RunParallel] for phases whose operations do
// not depend on each other; the phase only advances once every task has
// returned.
package async

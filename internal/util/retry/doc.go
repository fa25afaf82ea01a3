// Package retry provides bounded exponential backoff for idempotent calls.
//
// [Do] is used for read-only management API queries and for establishing
// node connections. Submissions of remote operations are never retried.
// Errors wrapped with [Fatal] stop retrying at once; lookup and
// configuration-mismatch errors are always wrapped that way.
package retry

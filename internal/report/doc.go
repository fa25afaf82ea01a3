// Package report turns a finished run into a document that can be printed,
// written to a file or uploaded.
package report

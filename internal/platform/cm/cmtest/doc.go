// Package cmtest provides an in-memory management server for tests.
package cmtest

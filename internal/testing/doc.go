// Package testing provides test utilities, builders, and fixtures for unit and integration tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ConfigBuilder: Fluent builder for creating test configurations
//   - ClusterFixture: A fake management server and node transport seeded to match a config
//   - MockManagement: Shared testify mock of the management plane
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithClusterName("test").
//	    WithHealthCheck(true).
//	    Build()
//
//	fixture := testing.NewClusterFixture(t, testing.NewConfigBuilder())
//	client := fixture.Client(t)
package testing

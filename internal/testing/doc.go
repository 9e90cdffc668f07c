// Package testing provides test utilities, builders, and fixtures shared by
// the unit and scenario tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ConfigBuilder: Fluent builder for creating test configurations
//   - Journal, DeviceFixture, ClusterFixture: scripted fakes that record
//     every device and cluster operation in one ordered log
//   - MockHandle, MockCluster, MockImageEnsurer, MockFileServer: testify mocks
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithWorkers(3).
//	    WithKubeconfig("/tmp/kubeconfig").
//	    Build()
//
//	journal := testing.NewJournal()
//	devices := testing.NewDeviceFixture(journal)
//	devices.Fail("worker-1", testing.OpFirmwareUpgrade, 3)
package testing

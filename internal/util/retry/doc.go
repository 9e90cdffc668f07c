// Package retry retries transient remote failures with exponential backoff.
//
// [WithExponentialBackoff] is used wherever a node may not be ready yet: SSH
// dials while the recovery image boots and Redfish calls while the BMC is
// busy. Errors wrapped with [Fatal] stop the loop immediately.
package retry

// Package config defines the fleet configuration consumed by dpuprov.
//
// A [Config] lists the worker nodes (host address plus BMC endpoint), where
// the recovery image lives and how it is served, SSH credentials for the
// recovery image, and the arguments of the two provisioning phases. It is
// loaded from YAML by [Load]; operational timeouts come from the
// environment via [LoadTimeouts].
package config

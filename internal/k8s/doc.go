// Package k8s is the cluster client used by the NIC-mode phase. It applies,
// creates and deletes manifests through the dynamic client, labels nodes,
// and waits for MachineConfigPool rollouts to settle.
package k8s

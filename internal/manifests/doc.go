// Package manifests renders the cluster resources of the NIC-mode phase:
// the MachineConfigPool grouping DPU nodes and the MachineConfig that
// switches their BlueField-2 cards into the requested mode.
package manifests

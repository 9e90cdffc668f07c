// Package orchestration drives the two reprovisioning phases across the
// fleet.
//
// ProvisionBFB boots every worker into the recovery image, upgrades and
// resets the DPU firmware, and loads the BFB image. SwitchNicMode waits for
// that to finish on every node, rolls out the DPU mode switch through the
// cluster, and cold-resets every node so the new mode takes effect.
//
// Per-node work runs on a bounded pool and is chained through a
// fleet.Registry, so the tasks of one node never overlap. A device
// operation that exits non-zero aborts the whole fleet.
package orchestration

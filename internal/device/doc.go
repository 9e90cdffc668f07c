// Package device mediates operations on a worker node and the DPU attached
// to it.
//
// A [Handle] pairs a node's out-of-band controller (power, virtual media)
// with an SSH shell on the recovery image, from which the DPU firmware
// tooling is run. Firmware operations return a [Result] carrying the remote
// exit status; a non-zero status is reported to callers as a
// [FirmwareError] once they decide it is fatal.
package device

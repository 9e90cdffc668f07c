// Package redfish implements out-of-band node control over the Redfish API:
// booting a node from virtual media and power-cycling it.
package redfish

// Package naming provides consistent names for the cluster objects dpuprov
// manages.
//
// MachineConfigs are named {priority}-{pool}-bf2-{mode}-mode so that the
// mode switch sorts after the pool's base configs and the object for one
// mode never collides with the other.
package naming

// Package ssh provides the SSH session used to drive a node booted into the
// recovery image.
//
// A [Client] dials with retry (the node may still be booting), keeps the
// connection open across commands and reports remote exit codes instead of
// treating them as transport failures. Host key verification is disabled
// by default since the recovery image regenerates its keys on every boot.
package ssh

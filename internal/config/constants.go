package config

// Defaults applied by Load.
const (
	DefaultRecoveryImagePath = "/root/iso/fedora-coreos.iso"
	DefaultNFSExportDir      = "/root/nfs"
	DefaultSSHPort           = 22
	DefaultRecoveryUser      = "core"
	DefaultToolsImage        = "quay.io/bnemeth/bf"
	DefaultContainerName     = "bf"
	DefaultPoolName          = "sriov"
	DefaultNodeLabel         = "feature.node.kubernetes.io/network-sriov.capable"
	DefaultNicMode           = "dpu"
)

// Supported DPU modes.
const (
	ModeDPU = "dpu"
	ModeNIC = "nic"
)

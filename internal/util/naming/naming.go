package naming

import "fmt"

// switchPriority orders the mode switch after base MachineConfigs.
const switchPriority = 99

// RoleLabel associates a MachineConfig with a MachineConfigPool.
const RoleLabel = "machineconfiguration.openshift.io/role"

func Pool(pool string) string {
	return pool
}

func SwitchConfig(pool, mode string) string {
	return fmt.Sprintf("%02d-%s-bf2-%s-mode", switchPriority, pool, mode)
}

package config

// Config is the fleet configuration.
type Config struct {
	// Kubeconfig is the path to the cluster's kubeconfig. Required by the
	// nic-mode phase only.
	Kubeconfig string `yaml:"kubeconfig"`

	Workers       []Worker            `yaml:"workers"`
	SSH           SSHConfig           `yaml:"ssh"`
	NFS           NFSConfig           `yaml:"nfs"`
	RecoveryImage RecoveryImageConfig `yaml:"recoveryImage"`
	Device        DeviceConfig        `yaml:"device"`

	BFB     BFBArgs     `yaml:"bfb"`
	NicMode NicModeArgs `yaml:"nicMode"`
}

// Worker describes one node and its out-of-band controller.
type Worker struct {
	// Name is the Kubernetes node name.
	Name string `yaml:"name"`
	// Node is the address the recovery image is reachable on.
	Node string     `yaml:"node"`
	BMC  *BMCConfig `yaml:"bmc"`
}

// BMCConfig addresses a Redfish-capable management controller.
type BMCConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// Insecure skips TLS verification; most BMCs ship self-signed certs.
	Insecure bool `yaml:"insecure"`
}

// SSHConfig holds credentials for the recovery image.
type SSHConfig struct {
	PrivateKeyPath string `yaml:"privateKeyPath"`
	Password       string `yaml:"password"`
	Port           int    `yaml:"port"`
}

// NFSConfig controls how the recovery image is exported to BMCs.
type NFSConfig struct {
	// ExportDir is the exported directory the image is placed in.
	ExportDir string `yaml:"exportDir"`
	// Address is the host BMCs mount from. If empty, the first IPv4
	// address of Interface is used.
	Address   string `yaml:"address"`
	Interface string `yaml:"interface"`
}

// RecoveryImageConfig locates the recovery ISO.
type RecoveryImageConfig struct {
	Path string    `yaml:"path"`
	S3   *S3Source `yaml:"s3"`
}

// S3Source is an S3-compatible object the recovery image is downloaded
// from when it is missing locally.
type S3Source struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	Key          string `yaml:"key"`
	AccessKeyEnv string `yaml:"accessKeyEnv"`
	SecretKeyEnv string `yaml:"secretKeyEnv"`
}

// DeviceConfig configures the DPU tooling run on the recovery image.
type DeviceConfig struct {
	ToolsImage    string `yaml:"toolsImage"`
	ContainerName string `yaml:"containerName"`
}

// BFBArgs are the arguments of the BFB provisioning phase.
type BFBArgs struct {
	// RecoveryUser is the login identity of the recovery image.
	RecoveryUser string `yaml:"recoveryUser"`
}

// NicModeArgs are the arguments of the nic-mode switch phase.
type NicModeArgs struct {
	PoolName  string `yaml:"poolName"`
	NodeLabel string `yaml:"nodeLabel"`
	// Mode is the DPU mode the switch manifest applies: "dpu" or "nic".
	Mode string `yaml:"mode"`
	// PoolManifest and SwitchManifest override the embedded manifests.
	PoolManifest   string `yaml:"poolManifest"`
	SwitchManifest string `yaml:"switchManifest"`
}

// WorkerNames returns the worker names in configuration order.
func (c *Config) WorkerNames() []string {
	names := make([]string, len(c.Workers))
	for i, w := range c.Workers {
		names[i] = w.Name
	}
	return names
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFilename is the config file looked up when --config is not set.
const DefaultConfigFilename = "dpuprov.yaml"

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses, defaults and validates YAML configuration.
// ${VAR} references are expanded from the environment before parsing.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.RecoveryImage.Path == "" {
		c.RecoveryImage.Path = DefaultRecoveryImagePath
	}
	if c.NFS.ExportDir == "" {
		c.NFS.ExportDir = DefaultNFSExportDir
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = DefaultSSHPort
	}
	if c.Device.ToolsImage == "" {
		c.Device.ToolsImage = DefaultToolsImage
	}
	if c.Device.ContainerName == "" {
		c.Device.ContainerName = DefaultContainerName
	}
	if c.BFB.RecoveryUser == "" {
		c.BFB.RecoveryUser = DefaultRecoveryUser
	}
	if c.NicMode.PoolName == "" {
		c.NicMode.PoolName = DefaultPoolName
	}
	if c.NicMode.NodeLabel == "" {
		c.NicMode.NodeLabel = DefaultNodeLabel
	}
	if c.NicMode.Mode == "" {
		c.NicMode.Mode = DefaultNicMode
	}
	if s := c.RecoveryImage.S3; s != nil {
		if s.AccessKeyEnv == "" {
			s.AccessKeyEnv = "AWS_ACCESS_KEY_ID"
		}
		if s.SecretKeyEnv == "" {
			s.SecretKeyEnv = "AWS_SECRET_ACCESS_KEY"
		}
	}
}

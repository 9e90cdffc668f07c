package testing

import (
	"fmt"
	"slices"

	"github.com/imamik/dpuprov/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a new ConfigBuilder with sensible defaults.
func NewConfigBuilder() *ConfigBuilder {
	cfg := config.Config{
		SSH: config.SSHConfig{Password: "core"},
		NFS: config.NFSConfig{Address: "192.168.1.1"},
	}
	cfg.ApplyDefaults()
	return &ConfigBuilder{cfg: cfg}
}

// WithWorkers replaces the workers with n nodes named worker-0..worker-n-1.
func (b *ConfigBuilder) WithWorkers(n int) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Workers = nil
	for i := range n {
		newBuilder.cfg.Workers = append(newBuilder.cfg.Workers, Worker(fmt.Sprintf("worker-%d", i), i))
	}
	return newBuilder
}

// WithWorker appends a worker.
func (b *ConfigBuilder) WithWorker(w config.Worker) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Workers = append(newBuilder.cfg.Workers, w)
	return newBuilder
}

// WithKubeconfig sets the kubeconfig path.
func (b *ConfigBuilder) WithKubeconfig(path string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Kubeconfig = path
	return newBuilder
}

// WithMode sets the requested DPU mode.
func (b *ConfigBuilder) WithMode(mode string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.NicMode.Mode = mode
	return newBuilder
}

// Build returns a copy of the configuration.
func (b *ConfigBuilder) Build() *config.Config {
	return &b.clone().cfg
}

func (b *ConfigBuilder) clone() *ConfigBuilder {
	cfg := b.cfg
	cfg.Workers = slices.Clone(b.cfg.Workers)
	for i, w := range cfg.Workers {
		if w.BMC != nil {
			bmc := *w.BMC
			cfg.Workers[i].BMC = &bmc
		}
	}
	if b.cfg.RecoveryImage.S3 != nil {
		s3 := *b.cfg.RecoveryImage.S3
		cfg.RecoveryImage.S3 = &s3
	}
	return &ConfigBuilder{cfg: cfg}
}

// Worker returns a worker with a BMC on the 10.0.1.0/24 management network.
func Worker(name string, index int) config.Worker {
	return config.Worker{
		Name: name,
		Node: fmt.Sprintf("10.0.0.%d", 10+index),
		BMC: &config.BMCConfig{
			URL:      fmt.Sprintf("https://10.0.1.%d", 10+index),
			User:     "root",
			Password: "calvin",
			Insecure: true,
		},
	}
}

// MinimalConfig returns a valid single-worker configuration.
func MinimalConfig() *config.Config {
	return NewConfigBuilder().WithWorkers(1).Build()
}

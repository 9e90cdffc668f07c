package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for errors that would otherwise only
// surface halfway through a fleet run.
func (c *Config) Validate() error {
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}

	seen := make(map[string]bool, len(c.Workers))
	for i, w := range c.Workers {
		if w.Name == "" {
			return fmt.Errorf("worker %d: name is required", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("worker %q: duplicate name", w.Name)
		}
		seen[w.Name] = true

		if w.Node == "" {
			return fmt.Errorf("worker %q: node address is required", w.Name)
		}
		if err := w.BMC.validate(); err != nil {
			return fmt.Errorf("worker %q: %w", w.Name, err)
		}
	}

	if c.SSH.PrivateKeyPath == "" && c.SSH.Password == "" {
		return fmt.Errorf("ssh: privateKeyPath or password is required")
	}

	if s := c.RecoveryImage.S3; s != nil {
		if s.Bucket == "" || s.Key == "" {
			return fmt.Errorf("recoveryImage.s3: bucket and key are required")
		}
	}

	switch c.NicMode.Mode {
	case ModeDPU, ModeNIC:
	default:
		return fmt.Errorf("nicMode.mode %q: must be %q or %q", c.NicMode.Mode, ModeDPU, ModeNIC)
	}

	return nil
}

// ValidateForNicMode checks the fields only the nic-mode phase needs.
func (c *Config) ValidateForNicMode() error {
	if c.Kubeconfig == "" {
		return fmt.Errorf("kubeconfig is required for the nic-mode phase")
	}
	return nil
}

func (b *BMCConfig) validate() error {
	if b == nil {
		return fmt.Errorf("bmc is required")
	}
	if b.URL == "" {
		return fmt.Errorf("bmc.url is required")
	}
	u, err := url.Parse(b.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("bmc.url %q is not a valid URL", b.URL)
	}
	if b.User == "" {
		return fmt.Errorf("bmc.user is required")
	}
	return nil
}

package redfish

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-logr/logr"
	"github.com/stmcginnis/gofish"
	"github.com/stmcginnis/gofish/redfish"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/imamik/dpuprov/internal/config"
	"github.com/imamik/dpuprov/internal/util/retry"
)

// Client controls one node through its BMC. Every operation opens its own
// Redfish session, since a cold boot may also reset the BMC session store.
type Client struct {
	cfg      gofish.ClientConfig
	timeouts *config.Timeouts
	log      logr.Logger
}

// NewClient creates a client for the BMC described by bmc.
func NewClient(bmc *config.BMCConfig, timeouts *config.Timeouts, log logr.Logger) *Client {
	return &Client{
		cfg: gofish.ClientConfig{
			Endpoint: bmc.URL,
			Username: bmc.User,
			Password: bmc.Password,
			Insecure: bmc.Insecure,
		},
		timeouts: timeouts,
		log:      log.WithValues("bmc", bmc.URL),
	}
}

// BootVirtualMedia inserts imageURL as virtual CD, sets a one-time CD boot
// override and restarts the system.
func (c *Client) BootVirtualMedia(ctx context.Context, imageURL string) error {
	return c.withSystem(ctx, func(api *gofish.APIClient, system *redfish.ComputerSystem) error {
		media, err := findVirtualCD(api)
		if err != nil {
			return err
		}

		if media.Inserted {
			c.log.V(1).Info("ejecting virtual media", "image", media.Image)
			if err := media.EjectMedia(); err != nil {
				return fmt.Errorf("failed to eject virtual media: %w", err)
			}
		}
		if err := media.InsertMedia(imageURL, true, true); err != nil {
			return fmt.Errorf("failed to insert virtual media %s: %w", imageURL, err)
		}

		err = system.SetBoot(redfish.Boot{
			BootSourceOverrideEnabled: redfish.OnceBootSourceOverrideEnabled,
			BootSourceOverrideTarget:  redfish.CdBootSourceOverrideTarget,
		})
		if err != nil {
			return fmt.Errorf("failed to set boot override: %w", err)
		}

		resetType := redfish.ForceRestartResetType
		if system.PowerState == redfish.OffPowerState {
			resetType = redfish.OnResetType
		}
		c.log.Info("restarting into virtual media", "reset", resetType)
		if err := system.Reset(resetType); err != nil {
			return fmt.Errorf("failed to reset system (%s): %w", resetType, err)
		}
		return nil
	})
}

// ColdBoot forces the system off, waits until it reports Off, keeps it off
// for the configured delay and powers it on again.
func (c *Client) ColdBoot(ctx context.Context) error {
	return c.withSystem(ctx, func(api *gofish.APIClient, system *redfish.ComputerSystem) error {
		if system.PowerState != redfish.OffPowerState {
			if err := system.Reset(redfish.ForceOffResetType); err != nil {
				return fmt.Errorf("failed to power off: %w", err)
			}
		}

		err := wait.PollUntilContextTimeout(ctx, c.timeouts.PollInterval, c.timeouts.Power, true,
			func(context.Context) (bool, error) {
				current, err := redfish.GetComputerSystem(api, system.ODataID)
				if err != nil {
					c.log.V(1).Info("failed to read power state", "error", err.Error())
					return false, nil
				}
				return current.PowerState == redfish.OffPowerState, nil
			})
		if err != nil {
			return fmt.Errorf("system did not power off within %s: %w", c.timeouts.Power, err)
		}

		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-time.After(c.timeouts.ColdBootDelay):
		}

		if err := system.Reset(redfish.OnResetType); err != nil {
			return fmt.Errorf("failed to power on: %w", err)
		}
		return nil
	})
}

// withSystem opens a session, resolves the first computer system and runs
// fn. Session setup is retried; fn is not.
func (c *Client) withSystem(ctx context.Context, fn func(*gofish.APIClient, *redfish.ComputerSystem) error) error {
	var api *gofish.APIClient
	err := retry.WithExponentialBackoff(ctx, func() error {
		var connErr error
		api, connErr = gofish.ConnectContext(ctx, c.cfg)
		return connErr
	},
		retry.WithMaxRetries(5),
		retry.WithInitialDelay(2*time.Second),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			c.log.Info("retrying BMC connection", "attempt", attempt, "error", err.Error(), "delay", delay)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to BMC %s: %w", c.cfg.Endpoint, err)
	}
	defer api.Logout()

	systems, err := api.Service.Systems()
	if err != nil {
		return fmt.Errorf("failed to list systems: %w", err)
	}
	if len(systems) == 0 {
		return fmt.Errorf("BMC %s exposes no computer systems", c.cfg.Endpoint)
	}
	return fn(api, systems[0])
}

// findVirtualCD returns the first virtual media slot accepting CD images.
func findVirtualCD(api *gofish.APIClient) (*redfish.VirtualMedia, error) {
	managers, err := api.Service.Managers()
	if err != nil {
		return nil, fmt.Errorf("failed to list managers: %w", err)
	}
	for _, m := range managers {
		media, err := m.VirtualMedia()
		if err != nil {
			return nil, fmt.Errorf("failed to list virtual media of %s: %w", m.ID, err)
		}
		if vm := pickVirtualCD(media); vm != nil {
			return vm, nil
		}
	}
	return nil, fmt.Errorf("no virtual media slot supports CD images")
}

func pickVirtualCD(media []*redfish.VirtualMedia) *redfish.VirtualMedia {
	for _, vm := range media {
		if slices.Contains(vm.MediaTypes, redfish.CDMediaType) || slices.Contains(vm.MediaTypes, redfish.DVDMediaType) {
			return vm
		}
	}
	return nil
}

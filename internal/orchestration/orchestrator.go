package orchestration

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/dpuprov/internal/config"
	"github.com/imamik/dpuprov/internal/device"
	"github.com/imamik/dpuprov/internal/fleet"
	"github.com/imamik/dpuprov/internal/manifests"
	"github.com/imamik/dpuprov/internal/util/async"
)

// Options holds the collaborators of an Orchestrator. Cluster may be nil
// when only ProvisionBFB is used.
type Options struct {
	Images    ImageEnsurer
	Files     FileServer
	Cluster   ClusterClient
	NewDevice DeviceFactory
	Tracker   *Tracker
	Metrics   *Metrics
	Log       logr.Logger
}

// Orchestrator runs the fleet phases.
type Orchestrator struct {
	images    ImageEnsurer
	files     FileServer
	cluster   ClusterClient
	newDevice DeviceFactory
	tracker   *Tracker
	metrics   *Metrics
	log       logr.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	log := opts.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Orchestrator{
		images:    opts.Images,
		files:     opts.Files,
		cluster:   opts.Cluster,
		newDevice: opts.NewDevice,
		tracker:   opts.Tracker,
		metrics:   opts.Metrics,
		log:       log,
	}
}

// ProvisionBFB prepares the recovery image and schedules the BFB sequence
// on every worker. It returns once every task is submitted; callers observe
// completion through futures.
func (o *Orchestrator) ProvisionBFB(ctx context.Context, cfg *config.Config, args config.BFBArgs, futures *fleet.Registry) error {
	log := o.log.WithValues("phase", PhaseBFB)
	log.Info("starting BFB provisioning", "workers", len(cfg.Workers))

	path, err := o.images.EnsureRecoveryImage(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare recovery image: %w", err)
	}
	url, err := o.files.HostFile(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to host recovery image: %w", err)
	}
	log.Info("recovery image hosted", "url", url)

	return o.fanOut(ctx, cfg, futures, PhaseBFB, func(ctx context.Context, t Task) (*device.Result, error) {
		return ResetToBFB(ctx, t, url, args.RecoveryUser)
	})
}

// SwitchNicMode waits for every node's previous task, rolls out the mode
// switch and cold-resets every node. Cold resets are scheduled through
// futures; the method returns after the pool has settled a second time.
func (o *Orchestrator) SwitchNicMode(ctx context.Context, cfg *config.Config, args config.NicModeArgs, futures *fleet.Registry) error {
	log := o.log.WithValues("phase", PhaseNicMode)
	if o.cluster == nil {
		return fmt.Errorf("nic-mode phase requires a cluster client")
	}

	log.Info("waiting for all nodes to finish provisioning")
	if err := futures.WaitAll(ctx); err != nil {
		return fmt.Errorf("provisioning did not complete: %w", err)
	}

	set, err := manifests.Load(args)
	if err != nil {
		return err
	}

	log.Info("applying pool manifest", "pool", args.PoolName)
	if err := o.cluster.Apply(ctx, set.Pool); err != nil {
		return fmt.Errorf("failed to apply pool manifest: %w", err)
	}

	for _, w := range cfg.Workers {
		if err := o.cluster.LabelNode(ctx, w.Name, args.NodeLabel, "true"); err != nil {
			return fmt.Errorf("failed to label node %s: %w", w.Name, err)
		}
	}

	log.Info("replacing mode switch manifest", "mode", args.Mode)
	if err := o.cluster.Delete(ctx, set.Switch); err != nil {
		return fmt.Errorf("failed to delete switch manifest: %w", err)
	}
	if err := o.cluster.Create(ctx, set.Switch); err != nil {
		return fmt.Errorf("failed to create switch manifest: %w", err)
	}

	log.Info("waiting for pool to update", "pool", args.PoolName)
	if err := o.cluster.WaitForPoolUpdated(ctx, args.PoolName); err != nil {
		return fmt.Errorf("failed waiting for pool %s: %w", args.PoolName, err)
	}

	if err := o.fanOut(ctx, cfg, futures, PhaseNicMode, ColdReset); err != nil {
		return err
	}

	log.Info("waiting for pool to settle after cold reset", "pool", args.PoolName)
	if err := o.cluster.WaitForPoolUpdated(ctx, args.PoolName); err != nil {
		return fmt.Errorf("failed waiting for pool %s after cold reset: %w", args.PoolName, err)
	}
	return nil
}

// Run executes both phases and waits for every node task to finish.
func (o *Orchestrator) Run(ctx context.Context, cfg *config.Config, futures *fleet.Registry) error {
	if err := o.ProvisionBFB(ctx, cfg, cfg.BFB, futures); err != nil {
		return err
	}
	if err := o.SwitchNicMode(ctx, cfg, cfg.NicMode, futures); err != nil {
		return err
	}
	return futures.WaitAll(ctx)
}

// fanOut chains one task per worker on a pool sized to the fleet.
func (o *Orchestrator) fanOut(
	ctx context.Context,
	cfg *config.Config,
	futures *fleet.Registry,
	phase string,
	sequence func(context.Context, Task) (*device.Result, error),
) error {
	pool := async.NewPool[*device.Result](futures.Context(), len(cfg.Workers))

	for _, w := range cfg.Workers {
		h, err := o.newDevice(w)
		if err != nil {
			return fmt.Errorf("failed to create device handle for %s: %w", w.Name, err)
		}

		task := Task{
			Handle:  h,
			Fleet:   futures,
			Phase:   phase,
			Tracker: o.tracker,
			Metrics: o.metrics,
			Log:     o.log,
		}
		submitted := false
		err = futures.Chain(ctx, w.Name, func() *fleet.Future {
			submitted = true
			return pool.Submit(w.Name, func(ctx context.Context) (*device.Result, error) {
				return sequence(ctx, task)
			})
		})
		if !submitted {
			_ = h.Close()
		}
		if err != nil {
			return fmt.Errorf("failed to schedule %s on %s: %w", phase, w.Name, err)
		}
		o.log.V(1).Info("task scheduled", "node", w.Name, "phase", phase)
	}
	return nil
}

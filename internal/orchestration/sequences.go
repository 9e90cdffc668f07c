package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/dpuprov/internal/device"
	"github.com/imamik/dpuprov/internal/fleet"
)

// ErrAborted wraps the fleet abort cause when a task stops before a step.
var ErrAborted = errors.New("aborted")

// Task is the context a node sequence runs in.
type Task struct {
	Handle  device.Handle
	Fleet   *fleet.Registry
	Phase   string
	Tracker *Tracker
	Metrics *Metrics
	Log     logr.Logger
}

type step struct {
	op    string
	stage Stage
	run   func(ctx context.Context) (*device.Result, error)
}

func noResult(fn func(context.Context) error) func(context.Context) (*device.Result, error) {
	return func(ctx context.Context) (*device.Result, error) {
		return nil, fn(ctx)
	}
}

// ResetToBFB boots the node into the recovery image at imageURL, upgrades
// and resets the DPU firmware, cold-boots, boots the recovery image again
// and loads the BFB. It returns the result of the BFB load.
func ResetToBFB(ctx context.Context, t Task, imageURL, user string) (*device.Result, error) {
	h := t.Handle
	boot := noResult(func(ctx context.Context) error { return h.BootFromURL(ctx, imageURL) })
	connect := noResult(func(ctx context.Context) error { return h.Connect(ctx, user) })

	return t.run(ctx, []step{
		{op: device.OpBootFromURL, stage: StageBootRecovery, run: boot},
		{op: device.OpConnect, stage: StageConnected, run: connect},
		{op: device.OpFirmwareUpgrade, stage: StageFirmwareUpgraded, run: h.FirmwareUpgrade},
		{op: device.OpFirmwareDefaults, stage: StageFirmwareDefaulted, run: h.FirmwareDefaults},
		{op: device.OpColdBoot, stage: StageColdBooted, run: noResult(h.ColdBoot)},
		{op: device.OpBootFromURL, stage: StageBootRecoveryAgain, run: boot},
		{op: device.OpConnect, stage: StageConnectedAgain, run: connect},
		{op: device.OpLoadBFB, stage: StageImageLoaded, run: h.LoadBFB},
	})
}

// ColdReset power-cycles the node.
func ColdReset(ctx context.Context, t Task) (*device.Result, error) {
	return t.run(ctx, []step{
		{op: device.OpColdBoot, stage: StageColdBooted, run: noResult(t.Handle.ColdBoot)},
	})
}

// run executes steps in order and closes the handle. The fleet is checked
// before every step. A non-zero result aborts the fleet.
func (t Task) run(ctx context.Context, steps []step) (*device.Result, error) {
	node := t.Handle.Name()
	log := t.Log.WithValues("node", node, "phase", t.Phase)
	defer func() {
		if err := t.Handle.Close(); err != nil {
			log.V(1).Info("failed to close device handle", "error", err.Error())
		}
	}()

	var last *device.Result
	for _, s := range steps {
		if cause := t.aborted(ctx); cause != nil {
			log.Info("stopping before step", "step", s.op, "reason", cause.Error())
			t.Tracker.Fail(node, t.Phase, cause)
			t.Metrics.recordTask(t.Phase, resultAborted)
			return nil, fmt.Errorf("%s %w before %s: %w", node, ErrAborted, s.op, cause)
		}

		log.V(1).Info("running step", "step", s.op)
		start := time.Now()
		res, err := s.run(ctx)
		t.Metrics.recordStep(s.op, time.Since(start).Seconds())

		if err != nil {
			err = fmt.Errorf("%s on %s: %w", s.op, node, err)
			log.Error(err, "device step failed", "step", s.op)
			t.Tracker.Fail(node, t.Phase, err)
			t.Metrics.recordTask(t.Phase, resultFailed)
			return nil, err
		}

		if !res.OK() {
			fwErr := &device.FirmwareError{Node: node, Operation: s.op, Result: res}
			log.Error(fwErr, "device operation returned non-zero status",
				"step", s.op,
				"command", res.Command,
				"exitCode", res.ExitCode,
				"output", fwErr.Diagnostics())
			t.Tracker.Fail(node, t.Phase, fwErr)
			t.Metrics.recordTask(t.Phase, resultFailed)
			t.Metrics.recordAbort()
			if t.Fleet != nil {
				t.Fleet.Abort(fwErr)
			}
			return res, fwErr
		}

		t.Tracker.Set(node, t.Phase, s.stage)
		log.Info("step completed", "step", s.op, "stage", string(s.stage))
		last = res
	}

	t.Metrics.recordTask(t.Phase, resultSuccess)
	return last, nil
}

func (t Task) aborted(ctx context.Context) error {
	if t.Fleet != nil {
		if err := t.Fleet.Err(); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return nil
}

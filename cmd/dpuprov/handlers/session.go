package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/imamik/dpuprov/internal/config"
	"github.com/imamik/dpuprov/internal/device"
	"github.com/imamik/dpuprov/internal/fileserver"
	"github.com/imamik/dpuprov/internal/fleet"
	"github.com/imamik/dpuprov/internal/image"
	"github.com/imamik/dpuprov/internal/k8s"
	"github.com/imamik/dpuprov/internal/orchestration"
	"github.com/imamik/dpuprov/internal/platform/redfish"
	"github.com/imamik/dpuprov/internal/util/netutil"
)

// Options are the global flags shared by every phase command.
type Options struct {
	ConfigPath  string
	Yes         bool
	MetricsAddr string
	Verbose     bool
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfig loads and validates the fleet configuration.
	loadConfig = config.Load

	// loadTimeouts reads operation timeouts from the environment.
	loadTimeouts = config.LoadTimeouts

	// readFile reads the SSH private key.
	readFile = os.ReadFile

	// newLogger builds the process logger.
	newLogger = func(verbose bool) logr.Logger {
		return zap.New(zap.UseDevMode(verbose), zap.WriteTo(os.Stderr))
	}

	// newCluster connects to the cluster named by the kubeconfig.
	newCluster = func(kubeconfig string, timeouts *config.Timeouts, log logr.Logger) (orchestration.ClusterClient, error) {
		return k8s.NewFromKubeconfig(kubeconfig, k8s.WithTimeouts(timeouts), k8s.WithLogger(log))
	}

	// newImageEnsurer creates the recovery image ensurer.
	newImageEnsurer = func(cfg config.RecoveryImageConfig, log logr.Logger) orchestration.ImageEnsurer {
		return image.NewEnsurer(cfg, image.WithDownloaderFactory(image.NewS3Downloader), image.WithLogger(log))
	}

	// newFileServer creates the server the recovery image is exported from.
	newFileServer = func(cfg config.NFSConfig, log logr.Logger) orchestration.FileServer {
		return fileserver.NewNFS(cfg, log)
	}

	// newDeviceFactory creates the per-node device handle factory.
	newDeviceFactory = bf2DeviceFactory

	// isInteractive reports whether stdout is a terminal.
	isInteractive = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	// confirm asks the operator before any card is touched.
	confirm = confirmReprovision

	// stdout receives the run summary.
	stdout io.Writer = os.Stdout
)

// session is one CLI invocation's wiring.
type session struct {
	cfg     *config.Config
	orch    *orchestration.Orchestrator
	futures *fleet.Registry
	tracker *orchestration.Tracker
	log     logr.Logger
}

// phaseFunc runs one or more phases on a prepared session.
type phaseFunc func(ctx context.Context, s *session) error

// execute loads the configuration, asks for confirmation, wires the
// orchestrator and runs fn. A summary of every node is printed whether or
// not fn succeeds.
func execute(ctx context.Context, opts Options, action string, needCluster bool, fn phaseFunc) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if needCluster {
		if err := cfg.ValidateForNicMode(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	if !opts.Yes {
		if !isInteractive() {
			return fmt.Errorf("refusing to %s without confirmation: pass --yes when not running on a terminal", action)
		}
		ok, err := confirm(ctx, cfg, action)
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			return errDeclined
		}
	}

	log := newLogger(opts.Verbose)
	timeouts := loadTimeouts()

	var privateKey []byte
	if cfg.SSH.PrivateKeyPath != "" {
		privateKey, err = readFile(cfg.SSH.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("failed to read ssh private key: %w", err)
		}
	}

	var cluster orchestration.ClusterClient
	if needCluster {
		cluster, err = newCluster(cfg.Kubeconfig, timeouts, log.WithName("k8s"))
		if err != nil {
			return fmt.Errorf("failed to create cluster client: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	stopMetrics, err := startMetricsServer(opts.MetricsAddr, reg, log.WithName("metrics"))
	if err != nil {
		return err
	}
	defer stopMetrics()

	tracker := orchestration.NewTracker(cfg.WorkerNames()...)
	s := &session{
		cfg:     cfg,
		futures: fleet.NewRegistry(ctx, cfg.WorkerNames()...),
		tracker: tracker,
		log:     log,
		orch: orchestration.New(orchestration.Options{
			Images:    newImageEnsurer(cfg.RecoveryImage, log.WithName("image")),
			Files:     newFileServer(cfg.NFS, log.WithName("nfs")),
			Cluster:   cluster,
			NewDevice: newDeviceFactory(cfg, privateKey, timeouts, log.WithName("device")),
			Tracker:   tracker,
			Metrics:   orchestration.NewMetrics(reg),
			Log:       log.WithName("orchestrator"),
		}),
	}

	log.Info("starting", "action", action, "workers", len(cfg.Workers))
	err = fn(ctx, s)
	if err != nil {
		s.drain(err)
	}
	reportFailure(log, err)

	fmt.Fprint(stdout, renderSummary(tracker.Snapshot(), isInteractive()))
	return err
}

// drainTimeout bounds how long a failed run waits for in-flight steps to
// observe the abort.
const drainTimeout = 30 * time.Second

// drain stops every node before its next step and waits for running steps
// to return, so no task outlives the command.
func (s *session) drain(cause error) {
	s.futures.Abort(cause)
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := s.futures.WaitAll(ctx); errors.Is(err, context.DeadlineExceeded) {
		s.log.Info("node tasks still running after abort", "timeout", drainTimeout)
	}
}

// errDeclined is returned when the operator answers no.
var errDeclined = errors.New("aborted: operator declined")

func reportFailure(log logr.Logger, err error) {
	if err == nil {
		return
	}
	var fwErr *device.FirmwareError
	if errors.As(err, &fwErr) {
		log.Error(fwErr, "firmware operation failed, card may need manual recovery",
			"node", fwErr.Node, "step", fwErr.Operation, "output", fwErr.Diagnostics())
	}
}

// bf2DeviceFactory creates BlueField-2 handles that reach each node's BMC
// over Redfish and its recovery image over SSH.
func bf2DeviceFactory(cfg *config.Config, privateKey []byte, timeouts *config.Timeouts, log logr.Logger) orchestration.DeviceFactory {
	return func(worker config.Worker) (device.Handle, error) {
		if worker.BMC == nil {
			return nil, fmt.Errorf("worker %s has no bmc", worker.Name)
		}
		return device.NewBF2Host(worker, device.BF2HostOptions{
			SSHPort:  cfg.SSH.Port,
			BMC:      redfish.NewClient(worker.BMC, timeouts, log.WithValues("node", worker.Name)),
			NewShell: device.NewSSHShellFactory(worker.Node, cfg.SSH, privateKey, timeouts),
			WaitPort: netutil.WaitForPort,
			Tools:    cfg.Device,
			Timeouts: timeouts,
			Log:      log,
		}), nil
	}
}

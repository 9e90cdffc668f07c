package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/dpuprov/internal/config"
)

// BMC is the out-of-band controller of a node.
type BMC interface {
	BootVirtualMedia(ctx context.Context, imageURL string) error
	ColdBoot(ctx context.Context) error
}

// Shell is a command channel to the node's running OS.
type Shell interface {
	Connect(ctx context.Context) error
	Run(ctx context.Context, command string) (output string, exitCode int, err error)
	Close() error
}

// ShellFactory creates a shell that logs in as user.
type ShellFactory func(user string) (Shell, error)

// PortWaiter blocks until host:port accepts TCP connections.
type PortWaiter func(ctx context.Context, host string, port int, timeout time.Duration) error

// Tool entrypoints inside the BlueField tools container.
const (
	toolFirmwareUpgrade  = "/fwup"
	toolFirmwareDefaults = "/fwdefaults"
	toolLoadBFB          = "/bfb"
)

// BF2Host is a Handle for a node carrying a BlueField-2 DPU. The DPU is
// managed from the host through rshim, using a privileged tools container
// started on the recovery image.
type BF2Host struct {
	name     string
	address  string
	sshPort  int
	bmc      BMC
	newShell ShellFactory
	waitPort PortWaiter
	tools    config.DeviceConfig
	timeouts *config.Timeouts
	log      logr.Logger

	mu               sync.Mutex
	shell            Shell
	containerStarted bool
}

// BF2HostOptions holds the collaborators of a BF2Host.
type BF2HostOptions struct {
	SSHPort  int
	BMC      BMC
	NewShell ShellFactory
	WaitPort PortWaiter
	Tools    config.DeviceConfig
	Timeouts *config.Timeouts
	Log      logr.Logger
}

// NewBF2Host creates a handle for worker.
func NewBF2Host(worker config.Worker, opts BF2HostOptions) *BF2Host {
	if opts.SSHPort == 0 {
		opts.SSHPort = config.DefaultSSHPort
	}
	if opts.Timeouts == nil {
		opts.Timeouts = config.LoadTimeouts()
	}
	return &BF2Host{
		name:     worker.Name,
		address:  worker.Node,
		sshPort:  opts.SSHPort,
		bmc:      opts.BMC,
		newShell: opts.NewShell,
		waitPort: opts.WaitPort,
		tools:    opts.Tools,
		timeouts: opts.Timeouts,
		log:      opts.Log.WithValues("node", worker.Name),
	}
}

// Name implements Handle.
func (h *BF2Host) Name() string {
	return h.name
}

// BootFromURL implements Handle.
func (h *BF2Host) BootFromURL(ctx context.Context, url string) error {
	h.log.Info("booting from virtual media", "url", url)
	h.dropShell()

	if err := h.bmc.BootVirtualMedia(ctx, url); err != nil {
		return fmt.Errorf("failed to boot %s from %s: %w", h.name, url, err)
	}
	if h.waitPort != nil {
		if err := h.waitPort(ctx, h.address, h.sshPort, h.timeouts.Boot); err != nil {
			return fmt.Errorf("%s did not come up after boot: %w", h.name, err)
		}
	}
	return nil
}

// Connect implements Handle.
func (h *BF2Host) Connect(ctx context.Context, user string) error {
	h.dropShell()

	shell, err := h.newShell(user)
	if err != nil {
		return fmt.Errorf("failed to create shell for %s: %w", h.name, err)
	}
	if err := shell.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s as %s: %w", h.name, user, err)
	}

	h.mu.Lock()
	h.shell = shell
	h.mu.Unlock()

	h.log.Info("connected", "user", user)
	return nil
}

// ColdBoot implements Handle.
func (h *BF2Host) ColdBoot(ctx context.Context) error {
	h.log.Info("cold booting")
	h.dropShell()

	if err := h.bmc.ColdBoot(ctx); err != nil {
		return fmt.Errorf("failed to cold boot %s: %w", h.name, err)
	}
	return nil
}

// FirmwareUpgrade implements Handle.
func (h *BF2Host) FirmwareUpgrade(ctx context.Context) (*Result, error) {
	return h.runTool(ctx, toolFirmwareUpgrade)
}

// FirmwareDefaults implements Handle.
func (h *BF2Host) FirmwareDefaults(ctx context.Context) (*Result, error) {
	return h.runTool(ctx, toolFirmwareDefaults)
}

// LoadBFB implements Handle.
func (h *BF2Host) LoadBFB(ctx context.Context) (*Result, error) {
	return h.runTool(ctx, toolLoadBFB)
}

// Close implements Handle.
func (h *BF2Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shell == nil {
		return nil
	}
	err := h.shell.Close()
	h.shell = nil
	h.containerStarted = false
	return err
}

// runTool runs a tools-container entrypoint, starting the container first
// if this boot has not done so yet. A failed container start is returned
// as the tool's result.
func (h *BF2Host) runTool(ctx context.Context, entrypoint string) (*Result, error) {
	h.mu.Lock()
	shell := h.shell
	started := h.containerStarted
	h.mu.Unlock()

	if shell == nil {
		return nil, fmt.Errorf("%s: not connected", h.name)
	}

	if !started {
		res, err := h.run(ctx, shell, h.containerRunCommand())
		if err != nil || !res.OK() {
			return res, err
		}
		h.mu.Lock()
		h.containerStarted = true
		h.mu.Unlock()
	}

	return h.run(ctx, shell, fmt.Sprintf("sudo podman exec %s %s", h.tools.ContainerName, entrypoint))
}

func (h *BF2Host) run(ctx context.Context, shell Shell, command string) (*Result, error) {
	h.log.V(1).Info("running", "command", command)
	output, code, err := shell.Run(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("failed to run %q on %s: %w", command, h.name, err)
	}
	return &Result{Command: command, ExitCode: code, Output: output}, nil
}

func (h *BF2Host) containerRunCommand() string {
	return fmt.Sprintf("sudo podman run --pull always --replace --pid host --network host --user 0 "+
		"--name %s -dit --privileged -v /dev:/dev -v /lib/modules:/lib/modules %s",
		h.tools.ContainerName, h.tools.ToolsImage)
}

// dropShell forgets the current shell; the connection does not survive a
// reboot.
func (h *BF2Host) dropShell() {
	_ = h.Close()
}

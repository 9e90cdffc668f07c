package orchestration

import (
	"context"

	"github.com/imamik/dpuprov/internal/config"
	"github.com/imamik/dpuprov/internal/device"
)

// ImageEnsurer produces the recovery image and returns its local path.
type ImageEnsurer interface {
	EnsureRecoveryImage(ctx context.Context) (string, error)
}

// FileServer publishes a local file and returns the URL BMCs boot from.
type FileServer interface {
	HostFile(ctx context.Context, path string) (string, error)
}

// ClusterClient is the cluster side of the NIC-mode phase.
type ClusterClient interface {
	Apply(ctx context.Context, manifest []byte) error
	Create(ctx context.Context, manifest []byte) error
	// Delete must succeed when the objects do not exist.
	Delete(ctx context.Context, manifest []byte) error
	LabelNode(ctx context.Context, node, key, value string) error
	WaitForPoolUpdated(ctx context.Context, pool string) error
}

// DeviceFactory creates a fresh device handle for a worker.
type DeviceFactory func(worker config.Worker) (device.Handle, error)

package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/dpuprov/internal/device"
)

// MockHandle is a testify mock of device.Handle.
type MockHandle struct {
	mock.Mock
}

// Name returns the mocked node name.
func (m *MockHandle) Name() string {
	return m.Called().String(0)
}

// BootFromURL boots from url.
func (m *MockHandle) BootFromURL(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

// Connect opens a shell as user.
func (m *MockHandle) Connect(ctx context.Context, user string) error {
	return m.Called(ctx, user).Error(0)
}

// ColdBoot power-cycles the node.
func (m *MockHandle) ColdBoot(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// FirmwareUpgrade runs the firmware upgrade.
func (m *MockHandle) FirmwareUpgrade(ctx context.Context) (*device.Result, error) {
	return m.result(m.Called(ctx))
}

// FirmwareDefaults resets the firmware configuration.
func (m *MockHandle) FirmwareDefaults(ctx context.Context) (*device.Result, error) {
	return m.result(m.Called(ctx))
}

// LoadBFB installs the BFB image.
func (m *MockHandle) LoadBFB(ctx context.Context) (*device.Result, error) {
	return m.result(m.Called(ctx))
}

// Close releases the handle.
func (m *MockHandle) Close() error {
	return m.Called().Error(0)
}

func (m *MockHandle) result(args mock.Arguments) (*device.Result, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*device.Result), args.Error(1)
}

// MockCluster is a testify mock of the cluster client.
type MockCluster struct {
	mock.Mock
}

// Apply applies manifest.
func (m *MockCluster) Apply(ctx context.Context, manifest []byte) error {
	return m.Called(ctx, manifest).Error(0)
}

// Create creates manifest.
func (m *MockCluster) Create(ctx context.Context, manifest []byte) error {
	return m.Called(ctx, manifest).Error(0)
}

// Delete deletes manifest.
func (m *MockCluster) Delete(ctx context.Context, manifest []byte) error {
	return m.Called(ctx, manifest).Error(0)
}

// LabelNode labels node.
func (m *MockCluster) LabelNode(ctx context.Context, node, key, value string) error {
	return m.Called(ctx, node, key, value).Error(0)
}

// WaitForPoolUpdated waits for pool.
func (m *MockCluster) WaitForPoolUpdated(ctx context.Context, pool string) error {
	return m.Called(ctx, pool).Error(0)
}

// MockImageEnsurer is a testify mock of the recovery image ensurer.
type MockImageEnsurer struct {
	mock.Mock
}

// EnsureRecoveryImage returns the mocked image path.
func (m *MockImageEnsurer) EnsureRecoveryImage(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockFileServer is a testify mock of the file server.
type MockFileServer struct {
	mock.Mock
}

// HostFile returns the mocked URL for path.
func (m *MockFileServer) HostFile(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

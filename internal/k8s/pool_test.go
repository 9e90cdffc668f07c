package k8s

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	k8stesting "k8s.io/client-go/testing"
)

var configMapGVR = schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}

// sequencePool serves pool states in order, repeating the last one.
func sequencePool(env *testEnv, states ...runtime.Object) *atomic.Int32 {
	var calls atomic.Int32
	env.dynamic.PrependReactor("get", "machineconfigpools",
		func(k8stesting.Action) (bool, runtime.Object, error) {
			n := int(calls.Add(1)) - 1
			if n >= len(states) {
				n = len(states) - 1
			}
			return true, states[n].DeepCopyObject(), nil
		})
	return &calls
}

func TestPoolStatus_Steady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status PoolStatus
		want   bool
	}{
		{"settled", PoolStatus{Updated: true, MachineCount: 3, UpdatedMachineCount: 3}, true},
		{"updating", PoolStatus{Updated: true, Updating: true, MachineCount: 3, UpdatedMachineCount: 3}, false},
		{"degraded", PoolStatus{Updated: true, Degraded: true, MachineCount: 3, UpdatedMachineCount: 3}, false},
		{"machines behind", PoolStatus{Updated: true, MachineCount: 3, UpdatedMachineCount: 2}, false},
		{"not updated", PoolStatus{MachineCount: 3, UpdatedMachineCount: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.status.Steady())
		})
	}
}

func TestGetPoolStatus(t *testing.T) {
	t.Parallel()
	env := setupTestClient(t, poolObject("sriov", false, true, false, 3, 1))

	status, err := env.client.GetPoolStatus(context.Background(), "sriov")
	require.NoError(t, err)
	assert.Equal(t, PoolStatus{Updating: true, MachineCount: 3, UpdatedMachineCount: 1}, status)
}

func TestWaitForPoolUpdated_ObservesRollout(t *testing.T) {
	t.Parallel()
	env := setupTestClient(t)
	calls := sequencePool(env,
		poolObject("sriov", true, false, false, 2, 2),
		poolObject("sriov", false, true, false, 2, 0),
		poolObject("sriov", false, true, false, 2, 1),
		poolObject("sriov", true, false, false, 2, 2),
	)

	require.NoError(t, env.client.WaitForPoolUpdated(context.Background(), "sriov"))
	assert.GreaterOrEqual(t, calls.Load(), int32(4))
}

func TestWaitForPoolUpdated_NoRolloutStarted(t *testing.T) {
	t.Parallel()
	env := setupTestClient(t, poolObject("sriov", true, false, false, 2, 2))

	assert.NoError(t, env.client.WaitForPoolUpdated(context.Background(), "sriov"))
}

func TestWaitForPoolUpdated_Degraded(t *testing.T) {
	t.Parallel()
	env := setupTestClient(t, poolObject("sriov", false, false, true, 2, 1))

	err := env.client.WaitForPoolUpdated(context.Background(), "sriov")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool sriov did not finish updating")
}

func TestWaitForPoolUpdated_MissingPool(t *testing.T) {
	t.Parallel()
	env := setupTestClient(t)

	err := env.client.WaitForPoolUpdated(context.Background(), "sriov")
	require.Error(t, err)
}

func TestWaitForPoolUpdated_Cancelled(t *testing.T) {
	t.Parallel()
	env := setupTestClient(t, poolObject("sriov", false, true, false, 2, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := env.client.WaitForPoolUpdated(ctx, "sriov")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

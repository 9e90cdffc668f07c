package k8s

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/wait"
)

// MachineConfigPoolGVR is the resource of OpenShift MachineConfigPools.
var MachineConfigPoolGVR = schema.GroupVersionResource{
	Group:    "machineconfiguration.openshift.io",
	Version:  "v1",
	Resource: "machineconfigpools",
}

// PoolStatus is the part of a MachineConfigPool status that decides
// whether a rollout has settled.
type PoolStatus struct {
	Updated             bool
	Updating            bool
	Degraded            bool
	MachineCount        int64
	UpdatedMachineCount int64
}

// Steady reports whether every machine in the pool runs the rendered
// configuration and nothing is in flight.
func (s PoolStatus) Steady() bool {
	return s.Updated && !s.Updating && !s.Degraded && s.MachineCount == s.UpdatedMachineCount
}

// GetPoolStatus reads the status of the named pool.
func (c *Client) GetPoolStatus(ctx context.Context, pool string) (PoolStatus, error) {
	obj, err := c.dynamicClient.Resource(MachineConfigPoolGVR).Get(ctx, pool, metav1.GetOptions{})
	if err != nil {
		return PoolStatus{}, err
	}
	return parsePoolStatus(obj), nil
}

// WaitForPoolUpdated waits for a MachineConfigPool rollout to settle. It
// first gives the pool time to start updating, since the controller reacts
// to a new MachineConfig asynchronously, and then waits until the pool is
// steady.
func (c *Client) WaitForPoolUpdated(ctx context.Context, pool string) error {
	interval := c.timeouts.PollInterval
	log := c.log.WithValues("pool", pool)

	err := wait.PollUntilContextTimeout(ctx, interval, c.timeouts.RolloutStart, true,
		func(ctx context.Context) (bool, error) {
			status, err := c.GetPoolStatus(ctx, pool)
			if err != nil {
				log.V(1).Info("failed to read pool status", "error", err.Error())
				return false, nil
			}
			return status.Updating, nil
		})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("failed waiting for pool %s: %w", pool, context.Cause(ctx))
		}
		log.Info("pool did not start updating, checking for steady state", "waited", c.timeouts.RolloutStart)
	} else {
		log.Info("pool is updating")
	}

	err = wait.PollUntilContextTimeout(ctx, interval, c.timeouts.Rollout, true,
		func(ctx context.Context) (bool, error) {
			status, err := c.GetPoolStatus(ctx, pool)
			if err != nil {
				log.V(1).Info("failed to read pool status", "error", err.Error())
				return false, nil
			}
			log.V(1).Info("pool status",
				"updated", status.Updated,
				"updating", status.Updating,
				"degraded", status.Degraded,
				"machines", status.MachineCount,
				"updatedMachines", status.UpdatedMachineCount)
			return status.Steady(), nil
		})
	if err != nil {
		return fmt.Errorf("pool %s did not finish updating within %s: %w", pool, c.timeouts.Rollout, err)
	}
	log.Info("pool updated")
	return nil
}

func parsePoolStatus(obj *unstructured.Unstructured) PoolStatus {
	var s PoolStatus
	s.MachineCount, _, _ = unstructured.NestedInt64(obj.Object, "status", "machineCount")
	s.UpdatedMachineCount, _, _ = unstructured.NestedInt64(obj.Object, "status", "updatedMachineCount")

	conditions, _, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	for _, raw := range conditions {
		cond, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		status, _ := cond["status"].(string)
		isTrue := status == string(metav1.ConditionTrue)
		switch cond["type"] {
		case "Updated":
			s.Updated = isTrue
		case "Updating":
			s.Updating = isTrue
		case "Degraded":
			s.Degraded = isTrue
		}
	}
	return s
}

package k8s

import (
	"context"
	"encoding/json"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

// LabelNode sets key=value on node, overwriting any existing value.
func (c *Client) LabelNode(ctx context.Context, node, key, value string) error {
	patch, err := json.Marshal(map[string]any{
		"metadata": map[string]any{
			"labels": map[string]string{key: value},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build label patch: %w", err)
	}

	_, err = c.clientset.CoreV1().Nodes().Patch(ctx, node, types.MergePatchType, patch, metav1.PatchOptions{
		FieldManager: FieldManager,
	})
	if err != nil {
		return fmt.Errorf("failed to label node %s with %s=%s: %w", node, key, value, err)
	}
	c.log.V(1).Info("labelled node", "node", node, "label", key, "value", value)
	return nil
}

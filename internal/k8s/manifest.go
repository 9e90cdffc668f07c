package k8s

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/dynamic"
)

// Apply applies multi-document YAML using Server-Side Apply.
func (c *Client) Apply(ctx context.Context, manifest []byte) error {
	return c.each(manifest, func(obj *unstructured.Unstructured) error {
		ri, err := c.resourceFor(obj)
		if err != nil {
			return err
		}

		data, err := obj.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to marshal object to JSON: %w", err)
		}

		force := true
		_, err = ri.Patch(ctx, obj.GetName(), types.ApplyPatchType, data, metav1.PatchOptions{
			FieldManager: FieldManager,
			Force:        &force,
		})
		if err != nil {
			return fmt.Errorf("server-side apply failed: %w", err)
		}
		c.log.V(1).Info("applied object", "kind", obj.GetKind(), "name", obj.GetName())
		return nil
	}, "apply")
}

// Create creates every object in manifest. Existing objects are an error;
// callers replace objects with Delete followed by Create.
func (c *Client) Create(ctx context.Context, manifest []byte) error {
	return c.each(manifest, func(obj *unstructured.Unstructured) error {
		ri, err := c.resourceFor(obj)
		if err != nil {
			return err
		}
		if _, err := ri.Create(ctx, obj, metav1.CreateOptions{FieldManager: FieldManager}); err != nil {
			return err
		}
		c.log.V(1).Info("created object", "kind", obj.GetKind(), "name", obj.GetName())
		return nil
	}, "create")
}

// Delete deletes every object in manifest and waits until each one is gone,
// so a following Create does not race a pending finalizer. Objects that do
// not exist are skipped.
func (c *Client) Delete(ctx context.Context, manifest []byte) error {
	return c.each(manifest, func(obj *unstructured.Unstructured) error {
		ri, err := c.resourceFor(obj)
		if err != nil {
			return err
		}
		err = ri.Delete(ctx, obj.GetName(), metav1.DeleteOptions{})
		if apierrors.IsNotFound(err) {
			c.log.V(1).Info("object already absent", "kind", obj.GetKind(), "name", obj.GetName())
			return nil
		}
		if err != nil {
			return err
		}
		return c.waitGone(ctx, ri, obj)
	}, "delete")
}

// waitGone polls until obj reads back as NotFound.
func (c *Client) waitGone(ctx context.Context, ri dynamic.ResourceInterface, obj *unstructured.Unstructured) error {
	err := wait.PollUntilContextTimeout(ctx, c.timeouts.PollInterval, c.timeouts.Delete, true,
		func(ctx context.Context) (bool, error) {
			_, err := ri.Get(ctx, obj.GetName(), metav1.GetOptions{})
			if apierrors.IsNotFound(err) {
				return true, nil
			}
			if err != nil {
				c.log.V(1).Info("object lookup failed, retrying", "kind", obj.GetKind(), "name", obj.GetName(), "error", err.Error())
			}
			return false, nil
		})
	if err != nil {
		return fmt.Errorf("object still present after %s: %w", c.timeouts.Delete, err)
	}
	c.log.V(1).Info("deleted object", "kind", obj.GetKind(), "name", obj.GetName())
	return nil
}

// each decodes manifest and calls fn for every non-empty document.
func (c *Client) each(manifest []byte, fn func(*unstructured.Unstructured) error, verb string) error {
	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(manifest), 4096)

	for docIndex := 0; ; docIndex++ {
		var obj unstructured.Unstructured
		if err := decoder.Decode(&obj); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode manifest document %d: %w", docIndex, err)
		}

		// Skip empty documents (common in multi-doc YAML)
		if len(obj.Object) == 0 {
			continue
		}

		if err := fn(&obj); err != nil {
			return fmt.Errorf("failed to %s %s %s: %w", verb, obj.GetKind(), obj.GetName(), err)
		}
	}
}

// resourceFor maps the object's GVK to its dynamic resource interface.
func (c *Client) resourceFor(obj *unstructured.Unstructured) (dynamic.ResourceInterface, error) {
	gvk := obj.GroupVersionKind()
	if gvk.Kind == "" {
		return nil, fmt.Errorf("object has no kind set")
	}

	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to get REST mapping for %v: %w", gvk, err)
	}

	resource := c.dynamicClient.Resource(mapping.Resource)
	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		return resource, nil
	}

	namespace := obj.GetNamespace()
	if namespace == "" {
		namespace = "default"
	}
	return resource.Namespace(namespace), nil
}

package testing

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/restmapper"
)

// MachineConfig and MachineConfigPool resources.
var (
	MachineConfigGVR = schema.GroupVersionResource{
		Group:    "machineconfiguration.openshift.io",
		Version:  "v1",
		Resource: "machineconfigs",
	}
	MachineConfigPoolGVR = schema.GroupVersionResource{
		Group:    "machineconfiguration.openshift.io",
		Version:  "v1",
		Resource: "machineconfigpools",
	}
)

// ListKinds maps the MachineConfig resources to their list kinds, as
// required by the fake dynamic client.
func ListKinds() map[schema.GroupVersionResource]string {
	return map[schema.GroupVersionResource]string{
		MachineConfigGVR:     "MachineConfigList",
		MachineConfigPoolGVR: "MachineConfigPoolList",
	}
}

// RESTMapper returns a mapper knowing core v1 and the MachineConfig API.
func RESTMapper() meta.RESTMapper {
	resources := []*restmapper.APIGroupResources{
		{
			Group: metav1.APIGroup{
				Name: "",
				Versions: []metav1.GroupVersionForDiscovery{
					{GroupVersion: "v1", Version: "v1"},
				},
				PreferredVersion: metav1.GroupVersionForDiscovery{GroupVersion: "v1", Version: "v1"},
			},
			VersionedResources: map[string][]metav1.APIResource{
				"v1": {
					{Name: "configmaps", Namespaced: true, Kind: "ConfigMap"},
					{Name: "nodes", Namespaced: false, Kind: "Node"},
				},
			},
		},
		{
			Group: metav1.APIGroup{
				Name: "machineconfiguration.openshift.io",
				Versions: []metav1.GroupVersionForDiscovery{
					{GroupVersion: "machineconfiguration.openshift.io/v1", Version: "v1"},
				},
				PreferredVersion: metav1.GroupVersionForDiscovery{
					GroupVersion: "machineconfiguration.openshift.io/v1",
					Version:      "v1",
				},
			},
			VersionedResources: map[string][]metav1.APIResource{
				"v1": {
					{Name: "machineconfigs", Namespaced: false, Kind: "MachineConfig"},
					{Name: "machineconfigpools", Namespaced: false, Kind: "MachineConfigPool"},
				},
			},
		},
	}

	return restmapper.NewDiscoveryRESTMapper(resources)
}

// PoolObject builds a MachineConfigPool with the given condition states.
func PoolObject(name string, updated, updating, degraded bool, machines, updatedMachines int64) *unstructured.Unstructured {
	cond := func(kind string, v bool) any {
		status := "False"
		if v {
			status = "True"
		}
		return map[string]any{"type": kind, "status": status}
	}
	return &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "machineconfiguration.openshift.io/v1",
		"kind":       "MachineConfigPool",
		"metadata":   map[string]any{"name": name},
		"status": map[string]any{
			"machineCount":        machines,
			"updatedMachineCount": updatedMachines,
			"conditions": []any{
				cond("Updated", updated),
				cond("Updating", updating),
				cond("Degraded", degraded),
			},
		},
	}}
}

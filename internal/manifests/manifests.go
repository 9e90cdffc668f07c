package manifests

import (
	"embed"
	"fmt"
	"net/url"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/imamik/dpuprov/internal/config"
	"github.com/imamik/dpuprov/internal/util/naming"
)

//go:embed nicmode/*.yaml
var defaults embed.FS

// modeSettings are the firmware parameters written for each mode.
var modeSettings = map[string]string{
	config.ModeDPU: "INTERNAL_CPU_MODEL=1\nINTERNAL_CPU_OFFLOAD_ENGINE=0\n",
	config.ModeNIC: "INTERNAL_CPU_MODEL=1\nINTERNAL_CPU_OFFLOAD_ENGINE=1\n",
}

// Set is the pair of manifests the NIC-mode phase works with.
type Set struct {
	Pool   []byte
	Switch []byte
}

// Load returns the pool and switch manifests for args. Paths in args take
// precedence over the embedded defaults.
func Load(args config.NicModeArgs) (*Set, error) {
	pool, err := load(args.PoolManifest, func() ([]byte, error) {
		return RenderPool(args.PoolName, args.NodeLabel)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load pool manifest: %w", err)
	}

	sw, err := load(args.SwitchManifest, func() ([]byte, error) {
		return RenderSwitch(args.PoolName, args.Mode)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load switch manifest: %w", err)
	}

	return &Set{Pool: pool, Switch: sw}, nil
}

func load(path string, render func() ([]byte, error)) ([]byte, error) {
	if path == "" {
		return render()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// RenderPool renders the MachineConfigPool named pool selecting nodes that
// carry nodeLabel=true.
func RenderPool(pool, nodeLabel string) ([]byte, error) {
	obj, err := readDefault("nicmode/pool.yaml")
	if err != nil {
		return nil, err
	}

	if err := setField(obj, naming.Pool(pool), "metadata", "name"); err != nil {
		return nil, err
	}
	if err := setField(obj, map[string]any{nodeLabel: "true"}, "spec", "nodeSelector", "matchLabels"); err != nil {
		return nil, err
	}
	return yaml.Marshal(obj)
}

// RenderSwitch renders the MachineConfig that applies mode to every
// BlueField-2 card in pool.
func RenderSwitch(pool, mode string) ([]byte, error) {
	settings, ok := modeSettings[mode]
	if !ok {
		return nil, fmt.Errorf("unsupported mode %q", mode)
	}

	obj, err := readDefault("nicmode/switch.yaml")
	if err != nil {
		return nil, err
	}

	if err := setField(obj, naming.SwitchConfig(pool, mode), "metadata", "name"); err != nil {
		return nil, err
	}
	if err := setField(obj, map[string]any{naming.RoleLabel: pool}, "metadata", "labels"); err != nil {
		return nil, err
	}

	files, ok := dig(obj, "spec", "config", "storage", "files").([]any)
	if !ok || len(files) == 0 {
		return nil, fmt.Errorf("switch manifest has no storage files")
	}
	file, ok := files[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("switch manifest storage file is malformed")
	}
	file["contents"] = map[string]any{"source": "data:," + url.PathEscape(settings)}

	return yaml.Marshal(obj)
}

func readDefault(name string) (map[string]any, error) {
	data, err := defaults.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded %s: %w", name, err)
	}
	var obj map[string]any
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to parse embedded %s: %w", name, err)
	}
	return obj, nil
}

// dig walks nested maps and returns the value at path, or nil.
func dig(obj map[string]any, path ...string) any {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

// setField sets value at path, creating intermediate maps.
func setField(obj map[string]any, value any, path ...string) error {
	m := obj
	for _, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			if m[key] != nil {
				return fmt.Errorf("field %s is not an object", key)
			}
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
	return nil
}

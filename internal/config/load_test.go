package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
kubeconfig: /root/kubeconfig
ssh:
  privateKeyPath: /root/.ssh/id_ed25519
workers:
  - name: worker-1
    node: 192.168.10.11
    bmc:
      url: https://192.168.20.11
      user: root
      password: ${TEST_BMC_PASSWORD}
      insecure: true
  - name: worker-2
    node: 192.168.10.12
    bmc:
      url: https://192.168.20.12
      user: root
`

func TestLoadFromBytes_AppliesDefaults(t *testing.T) {
	t.Setenv("TEST_BMC_PASSWORD", "calvin")

	cfg, err := LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"worker-1", "worker-2"}, cfg.WorkerNames())
	assert.Equal(t, "calvin", cfg.Workers[0].BMC.Password)
	assert.True(t, cfg.Workers[0].BMC.Insecure)

	assert.Equal(t, DefaultRecoveryImagePath, cfg.RecoveryImage.Path)
	assert.Equal(t, DefaultNFSExportDir, cfg.NFS.ExportDir)
	assert.Equal(t, DefaultSSHPort, cfg.SSH.Port)
	assert.Equal(t, DefaultToolsImage, cfg.Device.ToolsImage)
	assert.Equal(t, DefaultContainerName, cfg.Device.ContainerName)
	assert.Equal(t, DefaultRecoveryUser, cfg.BFB.RecoveryUser)
	assert.Equal(t, DefaultPoolName, cfg.NicMode.PoolName)
	assert.Equal(t, DefaultNodeLabel, cfg.NicMode.NodeLabel)
	assert.Equal(t, ModeDPU, cfg.NicMode.Mode)
}

func TestLoadFromBytes_S3Defaults(t *testing.T) {
	t.Parallel()
	data := validYAML + `
recoveryImage:
  s3:
    endpoint: https://fsn1.your-objectstorage.com
    region: fsn1
    bucket: images
    key: fedora-coreos.iso
`
	cfg, err := LoadFromBytes([]byte(data))
	require.NoError(t, err)
	require.NotNil(t, cfg.RecoveryImage.S3)
	assert.Equal(t, "AWS_ACCESS_KEY_ID", cfg.RecoveryImage.S3.AccessKeyEnv)
	assert.Equal(t, "AWS_SECRET_ACCESS_KEY", cfg.RecoveryImage.S3.SecretKeyEnv)
}

func TestLoadFromBytes_InvalidYAML(t *testing.T) {
	t.Parallel()
	_, err := LoadFromBytes([]byte("workers: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Workers, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

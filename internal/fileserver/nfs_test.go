package fileserver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/dpuprov/internal/config"
)

func writeImage(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "fedora-coreos.iso")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHostFile_PlacesIntoExport(t *testing.T) {
	t.Parallel()

	image := writeImage(t, t.TempDir(), "iso-bytes")
	export := filepath.Join(t.TempDir(), "nfs")

	srv := NewNFS(config.NFSConfig{ExportDir: export, Address: "192.168.10.1"}, logr.Discard())
	got, err := srv.HostFile(context.Background(), image)
	require.NoError(t, err)

	want := "nfs://192.168.10.1" + filepath.Join(export, "fedora-coreos.iso")
	assert.Equal(t, want, got)

	data, err := os.ReadFile(filepath.Join(export, "fedora-coreos.iso"))
	require.NoError(t, err)
	assert.Equal(t, "iso-bytes", string(data))
}

func TestHostFile_AlreadyInExport(t *testing.T) {
	t.Parallel()

	export := t.TempDir()
	image := writeImage(t, export, "iso-bytes")

	srv := NewNFS(config.NFSConfig{ExportDir: export, Address: "10.0.0.5"}, logr.Discard())
	got, err := srv.HostFile(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, "nfs://10.0.0.5"+image, got)
}

func TestHostFile_Idempotent(t *testing.T) {
	t.Parallel()

	image := writeImage(t, t.TempDir(), "iso-bytes")
	srv := NewNFS(config.NFSConfig{ExportDir: t.TempDir(), Address: "10.0.0.5"}, logr.Discard())

	first, err := srv.HostFile(context.Background(), image)
	require.NoError(t, err)
	second, err := srv.HostFile(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHostFile_InterfaceAddress(t *testing.T) {
	t.Parallel()

	image := writeImage(t, t.TempDir(), "iso")
	export := t.TempDir()

	srv := NewNFS(config.NFSConfig{ExportDir: export, Interface: "eno1"}, logr.Discard())
	srv.addr = func(name string) (string, error) {
		assert.Equal(t, "eno1", name)
		return "172.16.0.1", nil
	}

	got, err := srv.HostFile(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, "nfs://172.16.0.1"+filepath.Join(export, "fedora-coreos.iso"), got)
}

func TestHostFile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.NFSConfig
		addr    func(string) (string, error)
		path    string
		wantMsg string
	}{
		{
			name:    "no address source",
			cfg:     config.NFSConfig{ExportDir: t.TempDir()},
			wantMsg: "nfs address or interface must be configured",
		},
		{
			name: "interface lookup fails",
			cfg:  config.NFSConfig{ExportDir: t.TempDir(), Interface: "eno9"},
			addr: func(string) (string, error) {
				return "", errors.New("no such interface")
			},
			wantMsg: "failed to determine NFS address",
		},
		{
			name:    "missing source file",
			cfg:     config.NFSConfig{ExportDir: t.TempDir(), Address: "10.0.0.1"},
			path:    filepath.Join(t.TempDir(), "missing.iso"),
			wantMsg: "failed to stat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := NewNFS(tt.cfg, logr.Discard())
			if tt.addr != nil {
				srv.addr = tt.addr
			}
			path := tt.path
			if path == "" {
				path = "/does/not/matter.iso"
			}
			_, err := srv.HostFile(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestHostFile_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := NewNFS(config.NFSConfig{ExportDir: t.TempDir(), Address: "10.0.0.1"}, logr.Discard())
	_, err := srv.HostFile(ctx, "/x.iso")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHostFile_ReplacesStaleCopy(t *testing.T) {
	t.Parallel()

	image := writeImage(t, t.TempDir(), "new-bytes")
	export := t.TempDir()
	stale := filepath.Join(export, "fedora-coreos.iso")
	require.NoError(t, os.WriteFile(stale, []byte("old-bytes"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	srv := NewNFS(config.NFSConfig{ExportDir: export, Address: "10.0.0.5"}, logr.Discard())
	_, err := srv.HostFile(context.Background(), image)
	require.NoError(t, err)

	data, err := os.ReadFile(stale)
	require.NoError(t, err)
	assert.Equal(t, "new-bytes", string(data), "same size but older copy must be replaced")
}

func TestPlace_KeepsMatchingCopy(t *testing.T) {
	t.Parallel()

	src := writeImage(t, t.TempDir(), "iso-bytes")
	dst := filepath.Join(t.TempDir(), "fedora-coreos.iso")
	require.NoError(t, copyFile(src, dst))
	info, err := os.Stat(src)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(dst, info.ModTime(), info.ModTime()))

	before, err := os.Stat(dst)
	require.NoError(t, err)
	require.NoError(t, place(src, dst))
	after, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after), "matching copy is kept")
}

func TestCopyFile(t *testing.T) {
	t.Parallel()

	src := writeImage(t, t.TempDir(), "iso-bytes")
	dir := t.TempDir()
	dst := filepath.Join(dir, "fedora-coreos.iso")

	require.NoError(t, copyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "iso-bytes", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestCopyFile_FailureLeavesNothing(t *testing.T) {
	t.Parallel()

	// Reading a directory fails after the temp file exists.
	src := t.TempDir()
	dir := t.TempDir()
	dst := filepath.Join(dir, "fedora-coreos.iso")

	err := copyFile(src, dst)
	require.Error(t, err)

	_, statErr := os.Stat(dst)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

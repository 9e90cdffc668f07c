package fileserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/imamik/dpuprov/internal/config"
	"github.com/imamik/dpuprov/internal/util/netutil"
)

// NFS places files into an exported directory. It does not manage the NFS
// daemon itself; the export must already be configured on the host.
type NFS struct {
	cfg  config.NFSConfig
	addr func(name string) (string, error)
	log  logr.Logger
}

// NewNFS creates an NFS file server for cfg.
func NewNFS(cfg config.NFSConfig, log logr.Logger) *NFS {
	return &NFS{cfg: cfg, addr: netutil.InterfaceIPv4, log: log}
}

// HostFile makes path available in the export directory and returns its
// nfs:// URL.
func (n *NFS) HostFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	host, err := n.host()
	if err != nil {
		return "", err
	}

	exportDir, err := filepath.Abs(n.cfg.ExportDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve export dir: %w", err)
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir %s: %w", exportDir, err)
	}

	src, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dst := filepath.Join(exportDir, filepath.Base(src))
	if src != dst {
		if err := place(src, dst); err != nil {
			return "", err
		}
		n.log.V(1).Info("placed file in NFS export", "src", src, "dst", dst)
	}

	u := url.URL{Scheme: "nfs", Host: host, Path: dst}
	return u.String(), nil
}

func (n *NFS) host() (string, error) {
	if n.cfg.Address != "" {
		return n.cfg.Address, nil
	}
	if n.cfg.Interface == "" {
		return "", errors.New("nfs address or interface must be configured")
	}
	ip, err := n.addr(n.cfg.Interface)
	if err != nil {
		return "", fmt.Errorf("failed to determine NFS address: %w", err)
	}
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("interface %s returned invalid address %q", n.cfg.Interface, ip)
	}
	return ip, nil
}

// place hard-links src to dst, falling back to a copy across filesystems.
// An existing dst is kept only if it is src itself, or a copy with the same
// size and modification time.
func place(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if dstInfo, err := os.Stat(dst); err == nil {
		if current(srcInfo, dstInfo) {
			return nil
		}
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("failed to replace %s: %w", dst, err)
		}
	}

	if err := os.Link(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	// Copies carry the source mtime so the next run recognises them.
	if err := os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return fmt.Errorf("failed to set times on %s: %w", dst, err)
	}
	return nil
}

func current(src, dst os.FileInfo) bool {
	if os.SameFile(src, dst) {
		return true
	}
	return dst.Size() == src.Size() && dst.ModTime().Equal(src.ModTime())
}

// copyFile copies src to a temporary file next to dst and renames it into
// place. Nothing is left at dst on failure.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", dst, err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(out.Name())
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err = out.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", dst, err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err = os.Rename(out.Name(), dst); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dst, err)
	}
	return nil
}

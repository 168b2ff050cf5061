// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package connector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// umaskMu serializes the process-wide umask change around socket creation.
var umaskMu sync.Mutex

// listen binds a Unix socket readable and writable by the owner only.
// A stale socket left by a crashed process is replaced; a live one is not.
func listen(ctx context.Context, endpoint EndpointPath, _ string) (net.Listener, error) {
	path := endpoint.String()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := removeStaleSocket(ctx, path); err != nil {
		return nil, err
	}

	umaskMu.Lock()
	old := unix.Umask(0o177)
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", path)
	unix.Umask(old)
	umaskMu.Unlock()
	if err != nil {
		return nil, err
	}
	if ul, ok := ln.(*net.UnixListener); ok {
		ul.SetUnlinkOnClose(true)
	}
	return ln, nil
}

func removeStaleSocket(ctx context.Context, path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode().Type() != fs.ModeSocket {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	if conn, err := dial(ctx, EndpointPath(path)); err == nil {
		_ = conn.Close()
		return fmt.Errorf("another connector is serving on %s", path)
	}
	return os.Remove(path)
}

func dial(ctx context.Context, endpoint EndpointPath) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", endpoint.String())
}

func cleanupEndpoint(endpoint EndpointPath) {
	_ = os.Remove(endpoint.String())
}

func prepareChannelDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o700)
}

func channelPath(dir, id string) string {
	return filepath.Join(dir, id)
}

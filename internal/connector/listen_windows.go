// SPDX-License-Identifier: MPL-2.0

//go:build windows

package connector

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

// listen creates the named pipe. An empty sddl leaves the default ACL, which
// grants access to the creator, SYSTEM and administrators.
func listen(_ context.Context, endpoint EndpointPath, sddl string) (net.Listener, error) {
	return winio.ListenPipe(endpoint.String(), &winio.PipeConfig{
		SecurityDescriptor: sddl,
		MessageMode:        false,
	})
}

func dial(ctx context.Context, endpoint EndpointPath) (net.Conn, error) {
	return winio.DialPipeContext(ctx, endpoint.String())
}

// cleanupEndpoint is a no-op: the pipe disappears with its last handle.
func cleanupEndpoint(EndpointPath) {}

// prepareChannelDir is a no-op: session channels are pipes named under dir.
func prepareChannelDir(string) error { return nil }

func channelPath(dir, id string) string {
	return dir + `\` + id
}

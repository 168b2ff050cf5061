// SPDX-License-Identifier: MPL-2.0

package connector

import (
	"github.com/invowk/langhost/internal/host"

	"github.com/google/uuid"
)

// Channel endpoint suffixes, from the runtime's point of view.
const (
	inputSuffix  = ".in"
	outputSuffix = ".out"
)

// allocateChannels names a fresh channel pair under dir. The runtime creates
// the endpoints when it accepts the session.
func allocateChannels(dir string) (in, out host.ChannelID) {
	base := channelPath(dir, uuid.NewString())
	return host.ChannelID(base + inputSuffix), host.ChannelID(base + outputSuffix)
}

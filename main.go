// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os"

	cmd "github.com/invowk/langhost/cmd/langhost"
)

func main() {
	os.Exit(cmd.Main())
}

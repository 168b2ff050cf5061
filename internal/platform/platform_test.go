// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharedLibraryName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "liblangrt.so", SharedLibraryName("langrt", Linux))
	assert.Equal(t, "liblangrt.so", SharedLibraryName("langrt", "freebsd"))
	assert.Equal(t, "liblangrt.dylib", SharedLibraryName("langrt", Darwin))
	assert.Equal(t, "langrt.dll", SharedLibraryName("langrt", Windows))
}

func TestIsSharedLibraryName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		goos string
		want bool
	}{
		{"liblangrt.so", Linux, true},
		{"liblangrt.so.1.2", Linux, true},
		{"liblangrt.dylib", Linux, false},
		{"liblangrt.dylib", Darwin, true},
		{"LANGRT.DLL", Windows, true},
		{"langrt.exe", Windows, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSharedLibraryName(tt.name, tt.goos), "%s on %s", tt.name, tt.goos)
	}
}

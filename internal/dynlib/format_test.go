// SPDX-License-Identifier: MPL-2.0

package dynlib

import (
	"debug/elf"
	"debug/pe"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckELF(t *testing.T) {
	t.Parallel()

	t.Run("matching architecture", func(t *testing.T) {
		t.Parallel()

		path := writeELFHeader(t, elf.ELFCLASS64, elf.EM_X86_64)
		assert.NoError(t, checkFormat(path, "linux", "amd64"))
	})

	t.Run("foreign machine", func(t *testing.T) {
		t.Parallel()

		path := writeELFHeader(t, elf.ELFCLASS64, elf.EM_AARCH64)
		err := checkFormat(path, "linux", "amd64")
		require.ErrorIs(t, err, ErrLibraryFormatMismatch)

		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, path, loadErr.Path)
	})

	t.Run("32-bit object in 64-bit process", func(t *testing.T) {
		t.Parallel()

		path := writeELFHeader(t, elf.ELFCLASS32, elf.EM_386)
		err := checkFormat(path, "linux", "amd64")
		assert.ErrorIs(t, err, ErrLibraryFormatMismatch)
		assert.NotErrorIs(t, err, ErrLibraryLoad)
	})

	t.Run("unknown architecture is left to the loader", func(t *testing.T) {
		t.Parallel()

		path := writeELFHeader(t, elf.ELFCLASS64, elf.EM_SPARCV9)
		assert.NoError(t, checkFormat(path, "linux", "sparc64"))
	})

	t.Run("not an object file", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "notes.txt", []byte("this is not a shared library\n"))
		err := checkFormat(path, "linux", "amd64")
		assert.ErrorIs(t, err, ErrLibraryLoad)
		assert.NotErrorIs(t, err, ErrLibraryFormatMismatch)
	})
}

func TestCheckPE(t *testing.T) {
	t.Parallel()

	t.Run("matching architecture", func(t *testing.T) {
		t.Parallel()

		path := writePEHeader(t, pe.IMAGE_FILE_MACHINE_AMD64)
		assert.NoError(t, checkFormat(path, "windows", "amd64"))
	})

	t.Run("x86 image in amd64 process", func(t *testing.T) {
		t.Parallel()

		path := writePEHeader(t, pe.IMAGE_FILE_MACHINE_I386)
		assert.ErrorIs(t, checkFormat(path, "windows", "amd64"), ErrLibraryFormatMismatch)
	})

	t.Run("ELF object on windows", func(t *testing.T) {
		t.Parallel()

		path := writeELFHeader(t, elf.ELFCLASS64, elf.EM_X86_64)
		assert.ErrorIs(t, checkFormat(path, "windows", "amd64"), ErrLibraryLoad)
	})
}

func TestCheckMachONotAnObject(t *testing.T) {
	t.Parallel()

	path := writeELFHeader(t, elf.ELFCLASS64, elf.EM_AARCH64)
	assert.ErrorIs(t, checkFormat(path, "darwin", "arm64"), ErrLibraryLoad)
}

// SPDX-License-Identifier: MPL-2.0

package dynlib

import (
	"bytes"
	"debug/elf"
	"debug/pe"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeELFHeader writes a header-only ELF shared object with the given class
// and machine. debug/elf accepts it as long as it carries no sections.
func writeELFHeader(t *testing.T, class elf.Class, machine elf.Machine) string {
	t.Helper()

	var buf bytes.Buffer
	ident := [elf.EI_NIDENT]byte{0x7f, 'E', 'L', 'F', byte(class), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)}

	switch class {
	case elf.ELFCLASS32:
		hdr := elf.Header32{
			Ident:   ident,
			Type:    uint16(elf.ET_DYN),
			Machine: uint16(machine),
			Version: uint32(elf.EV_CURRENT),
			Ehsize:  52,
		}
		if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
			t.Fatalf("encode ELF32 header: %v", err)
		}
	default:
		hdr := elf.Header64{
			Ident:   ident,
			Type:    uint16(elf.ET_DYN),
			Machine: uint16(machine),
			Version: uint32(elf.EV_CURRENT),
			Ehsize:  64,
		}
		if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
			t.Fatalf("encode ELF64 header: %v", err)
		}
	}

	return writeFile(t, "lib.so", buf.Bytes())
}

// writePEHeader writes a section-less PE image with the given machine.
func writePEHeader(t *testing.T, machine uint16) string {
	t.Helper()

	img := make([]byte, 128)
	img[0], img[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(img[0x3c:], 0x40)
	copy(img[0x40:], "PE\x00\x00")

	var fh bytes.Buffer
	if err := binary.Write(&fh, binary.LittleEndian, pe.FileHeader{Machine: machine}); err != nil {
		t.Fatalf("encode PE file header: %v", err)
	}
	copy(img[0x44:], fh.Bytes())

	return writeFile(t, "lib.dll", img)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

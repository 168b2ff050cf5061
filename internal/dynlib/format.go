// SPDX-License-Identifier: MPL-2.0

package dynlib

import (
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"fmt"
	"runtime"

	"github.com/invowk/langhost/internal/platform"
)

// archInfo describes how a GOARCH is encoded in each object format.
type archInfo struct {
	elfMachine elf.Machine
	elfClass   elf.Class
	machoCPU   macho.Cpu
	peMachine  uint16
}

// archs maps GOARCH to its object-format encodings. Architectures absent from
// the table are not checked; the OS loader has the final word on them.
var archs = map[string]archInfo{
	"amd64":   {elf.EM_X86_64, elf.ELFCLASS64, macho.CpuAmd64, pe.IMAGE_FILE_MACHINE_AMD64},
	"386":     {elf.EM_386, elf.ELFCLASS32, macho.Cpu386, pe.IMAGE_FILE_MACHINE_I386},
	"arm64":   {elf.EM_AARCH64, elf.ELFCLASS64, macho.CpuArm64, pe.IMAGE_FILE_MACHINE_ARM64},
	"arm":     {elf.EM_ARM, elf.ELFCLASS32, macho.CpuArm, pe.IMAGE_FILE_MACHINE_ARMNT},
	"riscv64": {elf.EM_RISCV, elf.ELFCLASS64, 0, pe.IMAGE_FILE_MACHINE_RISCV64},
	"ppc64le": {elf.EM_PPC64, elf.ELFCLASS64, 0, 0},
	"s390x":   {elf.EM_S390, elf.ELFCLASS64, 0, 0},
	"loong64": {elf.EM_LOONGARCH, elf.ELFCLASS64, 0, 0},
}

// CheckFormat verifies that the object at path was built for the running
// process's OS object format and architecture.
func CheckFormat(path string) error {
	return checkFormat(path, runtime.GOOS, runtime.GOARCH)
}

func checkFormat(path, goos, goarch string) error {
	switch goos {
	case platform.Windows:
		return checkPE(path, goarch)
	case platform.Darwin, "ios":
		return checkMachO(path, goarch)
	default:
		return checkELF(path, goarch)
	}
}

func checkELF(path, goarch string) error {
	f, err := elf.Open(path)
	if err != nil {
		return newLoadError(path, ErrLibraryLoad, fmt.Errorf("not an ELF shared object: %w", err))
	}
	defer f.Close()

	want, ok := archs[goarch]
	if !ok {
		return nil
	}
	if f.Class != want.elfClass || f.Machine != want.elfMachine {
		return newLoadError(path, ErrLibraryFormatMismatch,
			fmt.Errorf("object is %s/%s, process is %s", f.Class, f.Machine, goarch))
	}
	return nil
}

func checkMachO(path, goarch string) error {
	want, known := archs[goarch]

	if f, err := macho.Open(path); err == nil {
		defer f.Close()
		if known && want.machoCPU != 0 && f.Cpu != want.machoCPU {
			return newLoadError(path, ErrLibraryFormatMismatch,
				fmt.Errorf("object is %s, process is %s", f.Cpu, goarch))
		}
		return nil
	}

	fat, err := macho.OpenFat(path)
	if err != nil {
		return newLoadError(path, ErrLibraryLoad, fmt.Errorf("not a Mach-O shared object: %w", err))
	}
	defer fat.Close()

	if !known || want.machoCPU == 0 {
		return nil
	}
	for _, arch := range fat.Arches {
		if arch.Cpu == want.machoCPU {
			return nil
		}
	}
	return newLoadError(path, ErrLibraryFormatMismatch,
		fmt.Errorf("universal object has no %s slice", goarch))
}

func checkPE(path, goarch string) error {
	f, err := pe.Open(path)
	if err != nil {
		return newLoadError(path, ErrLibraryLoad, fmt.Errorf("not a PE image: %w", err))
	}
	defer f.Close()

	want, ok := archs[goarch]
	if !ok || want.peMachine == 0 {
		return nil
	}
	if f.FileHeader.Machine != want.peMachine {
		return newLoadError(path, ErrLibraryFormatMismatch,
			fmt.Errorf("image machine %#x, process is %s", f.FileHeader.Machine, goarch))
	}
	return nil
}

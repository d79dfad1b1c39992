//go:build windows

package backend

import (
	"path/filepath"
	"unsafe"

	"flyable/common"

	"golang.org/x/sys/windows"
)

type windowsLibrary struct {
	dll *windows.DLL
}

// openLibrary loads a DLL.  Its directory is added to the DLL search path so
// that the DLLs shipped next to it resolve.
func openLibrary(path string) (library, error) {
	if err := windows.SetDllDirectory(filepath.Dir(path)); err != nil {
		return nil, err
	}

	dll, err := windows.LoadDLL(path)
	if err != nil {
		return nil, err
	}

	return &windowsLibrary{dll: dll}, nil
}

func (wl *windowsLibrary) run(buf []byte, output string) error {
	proc, err := wl.dll.FindProc(common.CodeGenEntry)
	if err != nil {
		return err
	}

	cout, err := windows.BytePtrFromString(output)
	if err != nil {
		return err
	}

	// The module buffer must not be empty to take its address.
	buf = append(buf, 0)
	proc.Call(
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)-1),
		uintptr(unsafe.Pointer(cout)),
	)
	return nil
}

func (wl *windowsLibrary) close() {
	wl.dll.Release()
}

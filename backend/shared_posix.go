//go:build cgo && !windows

package backend

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

typedef void (*codegen_run_fn)(char *, int32_t, const char *);

static void call_codegen_run(void *fn, char *buf, int32_t size, const char *output) {
	((codegen_run_fn)fn)(buf, size, output);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"flyable/common"
)

type posixLibrary struct {
	handle unsafe.Pointer
}

func openLibrary(path string) (library, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_GLOBAL)
	if handle == nil {
		return nil, errors.New(C.GoString(C.dlerror()))
	}

	return &posixLibrary{handle: handle}, nil
}

func (pl *posixLibrary) run(buf []byte, output string) error {
	csym := C.CString(common.CodeGenEntry)
	defer C.free(unsafe.Pointer(csym))

	fn := C.dlsym(pl.handle, csym)
	if fn == nil {
		return fmt.Errorf("missing entry point `%s`: %s", common.CodeGenEntry, C.GoString(C.dlerror()))
	}

	cbuf := C.CBytes(buf)
	defer C.free(cbuf)

	cout := C.CString(output)
	defer C.free(unsafe.Pointer(cout))

	C.call_codegen_run(fn, (*C.char)(cbuf), C.int32_t(len(buf)), cout)
	return nil
}

func (pl *posixLibrary) close() {
	C.dlclose(pl.handle)
}

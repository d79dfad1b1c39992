//go:build !cgo && !windows

package backend

import "errors"

func openLibrary(path string) (library, error) {
	return nil, errors.New("the shared backend requires a cgo build")
}

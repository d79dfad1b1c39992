//go:build !windows

package project

// pythonLibDir reports no directory: the Python library is found in the
// system library paths.
func pythonLibDir(version string) (string, bool) {
	return "", false
}

package common

import (
	"fmt"
	"runtime"
	"strings"
)

// CodeGenEntry is the entry point exported by the shared code generation
// library.
const CodeGenEntry string = "flyable_codegen_run"

// PlatformFolder returns the name of the folder holding the native libraries
// of the host platform.
func PlatformFolder() (string, error) {
	switch runtime.GOOS + "/" + runtime.GOARCH {
	case "windows/amd64":
		return "win64", nil
	case "linux/amd64":
		return "linux64", nil
	case "darwin/arm64":
		return "macos-arm64", nil
	}

	return "", fmt.Errorf("unsupported platform: %s/%s", runtime.GOOS, runtime.GOARCH)
}

// CodeGenLibName returns the file name of the shared code generation library.
func CodeGenLibName() string {
	switch runtime.GOOS {
	case "windows":
		return "FlyableCodeGen.dll"
	case "darwin":
		return "libFlyableCodeGen.dylib"
	default:
		return "libFlyableCodeGen.so"
	}
}

// ExecutableName returns the file name of an executable on the host.
func ExecutableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}

	return name
}

// PythonLinkArg returns the linker argument of the Python library of the
// given version (eg. `3.10`).  Windows installations drop the dot.
func PythonLinkArg(version string) string {
	if runtime.GOOS == "windows" {
		return "-lpython" + strings.ReplaceAll(version, ".", "")
	}

	return "-lpython" + version
}

//go:build windows

package project

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/windows/registry"
)

// pythonLibDir finds the import library directory of an installed Python
// through the registry.  Per-user installations take precedence.
func pythonLibDir(version string) (string, bool) {
	for _, root := range []registry.Key{registry.CURRENT_USER, registry.LOCAL_MACHINE} {
		k, err := registry.OpenKey(root, `SOFTWARE\Python\PythonCore\`+version+`\InstallPath`, registry.QUERY_VALUE)
		if err != nil {
			continue
		}

		installDir, _, err := k.GetStringValue("")
		k.Close()
		if err != nil {
			continue
		}

		libDir := filepath.Join(installDir, "libs")
		if _, err := os.Stat(libDir); err == nil {
			return libDir, true
		}
	}

	return "", false
}

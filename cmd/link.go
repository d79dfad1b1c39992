package cmd

import (
	"os"
	"runtime"

	"flyable/backend"
	"flyable/common"
)

// linkArgs returns the arguments of the C toolchain driver linking objPath
// into the project's executable.
func (c *Compiler) linkArgs(objPath string) []string {
	link := c.proj.Link

	args := append([]string{}, link.Flags...)
	args = append(args, "-o", c.proj.ExecPath(), objPath)

	if link.RuntimeLib != "" {
		args = append(args, link.RuntimeLib)
	}

	if link.PythonLibDir != "" {
		args = append(args, "-L"+link.PythonLibDir)
	}

	args = append(args, common.PythonLinkArg(link.PythonVersion))

	if runtime.GOOS != "windows" {
		args = append(args, "-lm")
	}

	return args
}

// linkExecutable links the object file of the program into its executable.
// A failed link is returned as a toolchain error carrying the linker's output.
func (c *Compiler) linkExecutable(objPath string) error {
	if err := os.MkdirAll(c.proj.OutputDir, 0755); err != nil {
		return err
	}

	return backend.RunTool(c.proj.OutputDir, c.proj.Link.CC, c.linkArgs(objPath)...)
}

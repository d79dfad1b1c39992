package cmd

import (
	"errors"
	"os"
	"os/exec"
)

// runExecutable runs a produced executable attached to the standard streams
// and returns its exit code.
func runExecutable(path string, args ...string) (int, error) {
	cmd := exec.Command(path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	} else if err != nil {
		return -1, err
	}

	return 0, nil
}

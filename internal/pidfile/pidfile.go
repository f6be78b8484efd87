// Package pidfile guards against two daemon instances sharing one data
// directory.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PidFile is an acquired pid file. Release removes it.
type PidFile struct {
	path string
}

// Acquire creates the pid file exclusively. When a file already exists
// it is treated as stale only if the recorded process is gone;
// otherwise Acquire fails, naming the running pid.
func Acquire(path string) (*PidFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		pid, readErr := readPid(path)
		if readErr == nil && processAlive(pid) {
			return nil, fmt.Errorf("another lampod instance (pid %d) holds %s", pid, path)
		}
		// Stale file from a non-graceful shutdown.
		if rmErr := os.Remove(path); rmErr != nil {
			return nil, fmt.Errorf("removing stale pid file %s: %w", path, rmErr)
		}
		f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	}
	if err != nil {
		return nil, fmt.Errorf("acquiring pid file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		os.Remove(path)
		return nil, err
	}
	return &PidFile{path: path}, nil
}

// Release removes the pid file.
func (p *PidFile) Release() error {
	return os.Remove(p.path)
}

func readPid(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(raw)))
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}

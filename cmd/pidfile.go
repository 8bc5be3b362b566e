// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"grimm.is/scanwall/internal/errors"
)

// readPIDFile returns the PID recorded at path.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.Attr(errors.Wrap(err, errors.KindNotFound, "no PID file (is the monitor running?)"), "path", path)
		}
		return 0, errors.Attr(errors.Wrap(err, errors.KindInternal, "read PID file"), "path", path)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, errors.Attr(errors.Errorf(errors.KindValidation, "invalid PID in %s", path), "path", path)
	}
	return pid, nil
}

// writePIDFile records the current process, refusing when a live process
// already owns the file. A stale file is replaced.
func writePIDFile(path string) error {
	if pid, err := readPIDFile(path); err == nil && pid != os.Getpid() && processAlive(pid) {
		return errors.Attr(errors.Errorf(errors.KindConflict, "already running (PID: %d)", pid), "pid", pid)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.KindPermission, "create run directory")
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindPermission, "write PID file"), "path", path)
	}
	return nil
}

// removePIDFile deletes path if it still names this process.
func removePIDFile(path string) {
	if pid, err := readPIDFile(path); err == nil && pid == os.Getpid() {
		_ = os.Remove(path)
	}
}

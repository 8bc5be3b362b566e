// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"os"
	"syscall"
	"time"

	"grimm.is/scanwall/internal/brand"
	"grimm.is/scanwall/internal/errors"
	"grimm.is/scanwall/internal/install"
)

// RunStop sends SIGTERM to the background monitor and waits for its PID
// file to disappear.
func RunStop() error {
	pidFile := install.GetPIDFile()
	pid, err := readPIDFile(pidFile)
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return errors.Wrap(err, errors.KindNotFound, "process not found")
	}

	Printer.Printf("Stopping %s (PID: %d)...\n", brand.Name, pid)
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return errors.Wrap(err, errors.KindPermission, "failed to send SIGTERM")
	}

	for range 50 {
		if _, err := os.Stat(pidFile); os.IsNotExist(err) {
			Printer.Println("Stopped.")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	Printer.Println("Warning: PID file still exists. Process might be stuck or slow to shutdown.")
	return nil
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"io"
	"runtime"

	"grimm.is/scanwall/internal/brand"
)

// RunVersion prints the build version.
func RunVersion(w io.Writer) {
	Printer.Fprintf(w, "%s %s (%s/%s, %s)\n", brand.LowerName, brand.Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

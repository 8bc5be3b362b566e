// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"os"
	"path/filepath"

	"grimm.is/scanwall/internal/brand"
)

var (
	DefaultConfigDir string
	DefaultStateDir  string
	DefaultLogDir    string
	DefaultRunDir    string

	// Build-time overrides (set via -ldflags).
	BuildDefaultConfigDir = ""
	BuildDefaultRunDir    = ""
	BuildDefaultLogDir    = ""
)

func init() {
	b := brand.Get()
	DefaultConfigDir = firstNonEmpty(BuildDefaultConfigDir, b.DefaultConfigDir)
	DefaultStateDir = b.DefaultStateDir
	DefaultLogDir = firstNonEmpty(BuildDefaultLogDir, b.DefaultLogDir)
	DefaultRunDir = firstNonEmpty(BuildDefaultRunDir, b.DefaultRunDir)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolve applies the lookup order SCANWALL_<NAME>_DIR > SCANWALL_PREFIX/<sub> > fallback.
func resolve(name, sub, fallback string) string {
	if dir := os.Getenv(brand.ConfigEnvPrefix + "_" + name + "_DIR"); dir != "" {
		return dir
	}
	if prefix := os.Getenv(brand.ConfigEnvPrefix + "_PREFIX"); prefix != "" {
		return filepath.Join(prefix, sub)
	}
	return fallback
}

// GetStateDir returns the state directory.
func GetStateDir() string { return resolve("STATE", "state", DefaultStateDir) }

// GetLogDir returns the log directory used by the daemonized monitor.
func GetLogDir() string { return resolve("LOG", "log", DefaultLogDir) }

// GetConfigDir returns the directory searched for the default config file.
func GetConfigDir() string { return resolve("CONFIG", "config", DefaultConfigDir) }

// GetRunDir returns the directory holding the PID file.
func GetRunDir() string { return resolve("RUN", "run", DefaultRunDir) }

// GetPIDFile returns the PID file path of the background monitor.
func GetPIDFile() string {
	return filepath.Join(GetRunDir(), brand.LowerName+".pid")
}

// DefaultConfigFile returns the config path used when none is given.
func DefaultConfigFile() string {
	return filepath.Join(GetConfigDir(), brand.LowerName+".hcl")
}

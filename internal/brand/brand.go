// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package brand holds the product identity and default filesystem layout.
package brand

const (
	Name            = "scanwall"
	LowerName       = "scanwall"
	ConfigEnvPrefix = "SCANWALL"
	Description     = "host port-scan detector with automatic firewall mitigation"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Brand describes default install locations.
type Brand struct {
	Name             string
	DefaultConfigDir string
	DefaultStateDir  string
	DefaultLogDir    string
	DefaultRunDir    string
}

// Get returns the default brand.
func Get() Brand {
	return Brand{
		Name:             Name,
		DefaultConfigDir: "/etc/" + LowerName,
		DefaultStateDir:  "/var/lib/" + LowerName,
		DefaultLogDir:    "/var/log/" + LowerName,
		DefaultRunDir:    "/run/" + LowerName,
	}
}

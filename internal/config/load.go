// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"gopkg.in/yaml.v3"

	"grimm.is/scanwall/internal/errors"
)

// LoadOptions controls how configs are loaded
type LoadOptions struct {
	// AllowUnknownFields ignores unknown fields instead of failing.
	AllowUnknownFields bool

	// SkipValidation returns the decoded config even if Validate fails.
	SkipValidation bool
}

// LoadFile loads a config file, picking the format from its extension.
// Unknown extensions are tried as HCL, then YAML, then JSON.
func LoadFile(path string) (*Config, error) {
	return LoadFileWithOptions(path, LoadOptions{})
}

// LoadFileWithOptions loads a config file with explicit options
func LoadFileWithOptions(path string, opts LoadOptions) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		kind := errors.KindInternal
		if errors.Is(err, fs.ErrNotExist) {
			kind = errors.KindNotFound
		}
		return nil, errors.Attr(errors.Wrap(err, kind, "failed to read config file"), "path", path)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		cfg, err = decodeHCL(data, path, opts)
	case ".yaml", ".yml":
		cfg, err = decodeYAML(data, opts)
	case ".json":
		cfg, err = decodeJSON(data, opts)
	default:
		var hclErr, yamlErr error
		if cfg, hclErr = decodeHCL(data, path, opts); hclErr == nil {
			break
		}
		if cfg, yamlErr = decodeYAML(data, opts); yamlErr == nil {
			break
		}
		if cfg, err = decodeJSON(data, opts); err != nil {
			err = errors.Wrapf(err, errors.KindValidation, "failed to parse config as HCL (%v), YAML (%v) or JSON", hclErr, yamlErr)
		}
	}
	if err != nil {
		return nil, errors.Attr(err, "path", path)
	}
	return finish(cfg, opts)
}

// LoadHCL loads config from HCL bytes
func LoadHCL(data []byte, filename string) (*Config, error) {
	cfg, err := decodeHCL(data, filename, LoadOptions{})
	if err != nil {
		return nil, err
	}
	return finish(cfg, LoadOptions{})
}

// LoadYAML loads config from YAML bytes
func LoadYAML(data []byte) (*Config, error) {
	cfg, err := decodeYAML(data, LoadOptions{})
	if err != nil {
		return nil, err
	}
	return finish(cfg, LoadOptions{})
}

// LoadJSON loads config from JSON bytes
func LoadJSON(data []byte) (*Config, error) {
	cfg, err := decodeJSON(data, LoadOptions{})
	if err != nil {
		return nil, err
	}
	return finish(cfg, LoadOptions{})
}

func finish(cfg *Config, opts LoadOptions) (*Config, error) {
	if cfg.SchemaVersion != "" && cfg.SchemaVersion != CurrentSchemaVersion {
		return nil, errors.Errorf(errors.KindValidation, "config schema version %s is not supported (want %s)",
			cfg.SchemaVersion, CurrentSchemaVersion)
	}
	cfg.ApplyDefaults()
	if !opts.SkipValidation {
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrap(err, errors.KindValidation, "invalid config")
		}
	}
	return cfg, nil
}

// envFunc exposes env("NAME") to HCL so secrets can stay out of the file.
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "name", Type: cty.String}},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{"env": envFunc},
	}
}

func decodeHCL(data []byte, filename string, opts LoadOptions) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(diags, errors.KindValidation, "failed to parse HCL")
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, evalContext(), &cfg)
	if diags.HasErrors() {
		if !opts.AllowUnknownFields || !onlyUnsupported(diags) {
			return nil, errors.Wrap(diags, errors.KindValidation, "failed to decode HCL")
		}
	}
	return &cfg, nil
}

// onlyUnsupported reports whether every error is an unknown attribute or block.
func onlyUnsupported(diags hcl.Diagnostics) bool {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		if !strings.HasPrefix(d.Summary, "Unsupported argument") && !strings.HasPrefix(d.Summary, "Unsupported block type") {
			return false
		}
	}
	return true
}

func decodeYAML(data []byte, opts LoadOptions) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(!opts.AllowUnknownFields)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "failed to parse YAML")
	}
	return &cfg, nil
}

func decodeJSON(data []byte, opts LoadOptions) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	if !opts.AllowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "failed to parse JSON")
	}
	return &cfg, nil
}

// Sample returns an annotated HCL config with the defaults spelled out.
func Sample() string {
	return fmt.Sprintf(`# scanwall configuration
interval    = %q
window_size = %d
threshold   = %d
proc_file   = %q
log_level   = %q

# Networks never counted toward a scan.
allowlist = ["127.0.0.0/8"]

blocker {
  backend = %q
}

metrics {
  enabled = true
  listen  = %q
}

notifications {
  enabled = false

  channel "ops" {
    type        = "webhook"
    enabled     = true
    level       = "warning"
    webhook_url = env("SCANWALL_WEBHOOK_URL")
  }
}
`, DefaultInterval, DefaultWindowSize, DefaultThreshold, DefaultProcFile, DefaultLogLevel, DefaultBackend, DefaultMetricsListen)
}

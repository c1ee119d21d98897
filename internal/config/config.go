// Package config carries the user-facing settings, sourced either from LSP
// initialization options or from a workspace YAML file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/CamdenClark/zett-languageservice/internal/diagnostics"
)

type Config struct {
	// IgnoreLinks lists glob patterns excluded from link validation.
	IgnoreLinks []string `json:"ignoreLinks" yaml:"ignoreLinks"`

	// Severity levels: "off", "warning" or "error". Empty inherits the
	// default.
	ValidateFileLinks                 string `json:"validateFileLinks" yaml:"validateFileLinks"`
	ValidateFragmentLinks             string `json:"validateFragmentLinks" yaml:"validateFragmentLinks"`
	ValidateReferences                string `json:"validateReferences" yaml:"validateReferences"`
	ValidateMarkdownFileLinkFragments string `json:"validateMarkdownFileLinkFragments" yaml:"validateMarkdownFileLinkFragments"`

	// Excludes lists glob patterns skipped when walking the workspace.
	Excludes []string `json:"excludes" yaml:"excludes"`

	// IndexPath is where the sqlite link index lives, relative to the
	// workspace root.
	IndexPath string `json:"indexPath" yaml:"indexPath"`

	// GraphAddr is the listen address of the live graph view. Empty
	// disables it.
	GraphAddr string `json:"graphAddr" yaml:"graphAddr"`
}

var defaultConfig = Config{
	ValidateFileLinks:     "warning",
	ValidateFragmentLinks: "warning",
	ValidateReferences:    "warning",
	IndexPath:             ".zett/index.db",
}

// Load merges initialization options into the defaults. Only fields present
// in v overwrite.
func Load(v any) (Config, error) {
	cfg := defaultConfig

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a YAML config file, merging over the defaults. A missing
// file yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := defaultConfig

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// DiagnosticOptions converts the raw settings into validation options.
// Unknown severity strings fall back to unset.
func (c Config) DiagnosticOptions() diagnostics.Options {
	return diagnostics.Options{
		IgnoreLinks:                       c.IgnoreLinks,
		ValidateFileLinks:                 severity(c.ValidateFileLinks),
		ValidateFragmentLinks:             severity(c.ValidateFragmentLinks),
		ValidateReferences:                severity(c.ValidateReferences),
		ValidateMarkdownFileLinkFragments: severity(c.ValidateMarkdownFileLinkFragments),
	}
}

func severity(raw string) diagnostics.Severity {
	switch raw {
	case "off":
		return diagnostics.SeverityOff
	case "warning":
		return diagnostics.SeverityWarning
	case "error":
		return diagnostics.SeverityError
	default:
		return diagnostics.SeverityUnset
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CamdenClark/zett-languageservice/internal/diagnostics"
)

func TestLoadMergesOverDefaults(t *testing.T) {
	cfg, err := Load(map[string]any{
		"validateFileLinks": "error",
		"ignoreLinks":       []string{"/images/**"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ValidateFileLinks != "error" {
		t.Errorf("ValidateFileLinks %q", cfg.ValidateFileLinks)
	}
	if cfg.ValidateFragmentLinks != "warning" {
		t.Errorf("default lost: ValidateFragmentLinks %q", cfg.ValidateFragmentLinks)
	}
	if len(cfg.IgnoreLinks) != 1 || cfg.IgnoreLinks[0] != "/images/**" {
		t.Errorf("IgnoreLinks %v", cfg.IgnoreLinks)
	}
}

func TestLoadNilUsesDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IndexPath != ".zett/index.db" {
		t.Errorf("IndexPath %q", cfg.IndexPath)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zett.yaml")
	content := "validateReferences: \"off\"\nexcludes:\n  - drafts/**\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ValidateReferences != "off" {
		t.Errorf("ValidateReferences %q", cfg.ValidateReferences)
	}
	if len(cfg.Excludes) != 1 || cfg.Excludes[0] != "drafts/**" {
		t.Errorf("Excludes %v", cfg.Excludes)
	}
}

func TestLoadFileMissingYieldsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ValidateFileLinks != "warning" {
		t.Errorf("ValidateFileLinks %q", cfg.ValidateFileLinks)
	}
}

func TestDiagnosticOptions(t *testing.T) {
	cfg := defaultConfig
	cfg.ValidateMarkdownFileLinkFragments = "bogus"
	opts := cfg.DiagnosticOptions()
	if opts.ValidateFileLinks != diagnostics.SeverityWarning {
		t.Errorf("ValidateFileLinks %q", opts.ValidateFileLinks)
	}
	if opts.ValidateMarkdownFileLinkFragments != diagnostics.SeverityUnset {
		t.Errorf("unknown severity not treated as unset: %q", opts.ValidateMarkdownFileLinkFragments)
	}
}

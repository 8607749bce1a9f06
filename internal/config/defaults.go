package config

import (
	"path/filepath"
	"runtime"
	"strings"

	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Configuration) error
	Domain() string
}

// DefaultFileTypes is used when fileTypes is empty.
var DefaultFileTypes = []string{".h"}

// SourceDefaultApplier normalizes the source selection options.
type SourceDefaultApplier struct{}

func (SourceDefaultApplier) Domain() string { return "source" }

func (SourceDefaultApplier) ApplyDefaults(cfg *Configuration) error {
	if len(cfg.FileTypes) == 0 {
		cfg.FileTypes = append([]string(nil), DefaultFileTypes...)
	}
	seen := make(map[string]struct{}, len(cfg.FileTypes))
	types := cfg.FileTypes[:0]
	for _, ft := range cfg.FileTypes {
		ft = strings.ToLower(strings.TrimSpace(ft))
		if ft == "" {
			continue
		}
		if !strings.HasPrefix(ft, ".") {
			ft = "." + ft
		}
		if _, dup := seen[ft]; dup {
			continue
		}
		seen[ft] = struct{}{}
		types = append(types, ft)
	}
	cfg.FileTypes = types

	for i, p := range cfg.Paths {
		cfg.Paths[i] = absUnder(cfg.BaseDir, p)
	}
	return nil
}

// OutputDefaultApplier fills output locations and enables HTML when nothing is enabled.
type OutputDefaultApplier struct{}

func (OutputDefaultApplier) Domain() string { return "output" }

func (OutputDefaultApplier) ApplyDefaults(cfg *Configuration) error {
	if cfg.OutputPath != "" {
		cfg.OutputPath = absUnder(cfg.BaseDir, cfg.OutputPath)
	}
	if !cfg.HTMLOutputEnabled && !cfg.DocSetOutputEnabled {
		cfg.HTMLOutputEnabled = true
	}
	if cfg.DocSetBundleName == "" {
		cfg.DocSetBundleName = cfg.FrameworkName
	}
	if cfg.TemplatesDirectory != "" {
		cfg.TemplatesDirectory = absUnder(cfg.BaseDir, cfg.TemplatesDirectory)
	}
	if cfg.ReportPath == "" && cfg.OutputPath != "" {
		cfg.ReportPath = filepath.Join(cfg.OutputPath, "doctool-report.json")
	} else if cfg.ReportPath != "" {
		cfg.ReportPath = absUnder(cfg.BaseDir, cfg.ReportPath)
	}
	return nil
}

// RuntimeDefaultApplier fills cache and worker settings.
type RuntimeDefaultApplier struct{}

func (RuntimeDefaultApplier) Domain() string { return "runtime" }

func (RuntimeDefaultApplier) ApplyDefaults(cfg *Configuration) error {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = CacheBackendFile
	}
	if cfg.CachePath == "" {
		cfg.CachePath = ".doctool-cache"
	}
	cfg.CachePath = absUnder(cfg.BaseDir, cfg.CachePath)
	if cfg.ClangPath == "" {
		cfg.ClangPath = "clang"
	}
	return nil
}

// ApplyDefaults runs every registered DefaultApplier in order.
func ApplyDefaults(cfg *Configuration) error {
	appliers := []DefaultApplier{
		SourceDefaultApplier{},
		OutputDefaultApplier{},
		RuntimeDefaultApplier{},
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "apply defaults").
				Fatal().WithContext("domain", a.Domain()).Build()
		}
	}
	return nil
}

func absUnder(base, p string) string {
	if p == "" {
		return p
	}
	if filepath.IsAbs(p) || base == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

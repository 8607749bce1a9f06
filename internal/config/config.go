package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"howett.net/plist"

	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
)

// ErrConfigNotFound is returned (wrapped) when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Cache backends.
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
	CacheBackendNone   = "none"
)

// Configuration holds every recognized doctool option. Values are read-only after Load.
//
// The same keys are accepted from YAML and from property lists.
type Configuration struct {
	CompilerArguments        []string `yaml:"compilerArguments,omitempty" plist:"compilerArguments,omitempty"`
	ShowUndocumentedEntities bool     `yaml:"showUndocumentedEntities" plist:"showUndocumentedEntities"`
	ShowInternalComments     bool     `yaml:"showInternalComments" plist:"showInternalComments"`

	FrameworkName   string   `yaml:"frameworkName" plist:"frameworkName" validate:"required"`
	Paths           []string `yaml:"paths" plist:"paths" validate:"required,min=1,dive,required"`
	ExcludePatterns []string `yaml:"excludePatterns,omitempty" plist:"excludePatterns,omitempty"`
	FileTypes       []string `yaml:"fileTypes,omitempty" plist:"fileTypes,omitempty" validate:"dive,startswith=."`

	OutputPath          string `yaml:"outputPath" plist:"outputPath" validate:"required"`
	HTMLOutputEnabled   bool   `yaml:"htmlOutputEnabled" plist:"htmlOutputEnabled"`
	DocSetOutputEnabled bool   `yaml:"docSetOutputEnabled" plist:"docSetOutputEnabled"`

	DocSetBundleID            string `yaml:"docSetBundleId,omitempty" plist:"docSetBundleId,omitempty" validate:"required_if=DocSetOutputEnabled true"`
	DocSetBundleName          string `yaml:"docSetBundleName,omitempty" plist:"docSetBundleName,omitempty"`
	DocSetBundleVersion       string `yaml:"docSetBundleVersion,omitempty" plist:"docSetBundleVersion,omitempty"`
	DocSetPublisherIdentifier string `yaml:"docSetPublisherIdentifier,omitempty" plist:"docSetPublisherIdentifier,omitempty" validate:"required_if=DocSetOutputEnabled true"`
	DocSetPublisherName       string `yaml:"docSetPublisherName,omitempty" plist:"docSetPublisherName,omitempty" validate:"required_if=DocSetOutputEnabled true"`

	CachePath            string `yaml:"cachePath,omitempty" plist:"cachePath,omitempty"`
	CacheBackend         string `yaml:"cacheBackend,omitempty" plist:"cacheBackend,omitempty" validate:"omitempty,oneof=file sqlite none"`
	Concurrency          int    `yaml:"concurrency,omitempty" plist:"concurrency,omitempty" validate:"gte=0,lte=256"`
	TemplatesDirectory   string `yaml:"templatesDirectory,omitempty" plist:"templatesDirectory,omitempty"`
	InheritDocumentation *bool  `yaml:"inheritDocumentation,omitempty" plist:"inheritDocumentation,omitempty"`
	UUIDSeed             string `yaml:"uuidSeed,omitempty" plist:"uuidSeed,omitempty"`
	VerifyLinks          bool   `yaml:"verifyLinks,omitempty" plist:"verifyLinks,omitempty"`
	ClangPath            string `yaml:"clangPath,omitempty" plist:"clangPath,omitempty"`
	ReportPath           string `yaml:"reportPath,omitempty" plist:"reportPath,omitempty"`

	// BaseDir is the directory relative paths were resolved against.
	BaseDir string `yaml:"-" plist:"-"`
}

// InheritsDocumentation reports whether undocumented members take the comment of the
// member they override. Defaults to true.
func (c *Configuration) InheritsDocumentation() bool {
	return c.InheritDocumentation == nil || *c.InheritDocumentation
}

// DocSetBundlePath is the directory of the generated bundle.
func (c *Configuration) DocSetBundlePath() string {
	return filepath.Join(c.OutputPath, c.DocSetBundleID+".docset")
}

// HTMLOutputPath is the root of the plain HTML tree.
func (c *Configuration) HTMLOutputPath() string {
	return filepath.Join(c.OutputPath, "html")
}

// Load reads, expands, defaults and validates the configuration at path.
// Files ending in .plist are decoded as property lists, everything else as YAML.
func Load(path string) (*Configuration, error) {
	if err := loadEnvFiles(filepath.Dir(path)); err != nil {
		slog.Debug("No environment file loaded", "error", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ferrors.WrapError(fmt.Errorf("%w: %s", ErrConfigNotFound, path), ferrors.CategoryConfig, "cannot load configuration").
				Fatal().WithContext("path", path).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "cannot read configuration").
			Fatal().WithContext("path", path).Build()
	}

	cfg, err := Parse(data, isPlist(path))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "cannot decode configuration").
			Fatal().WithContext("path", path).Build()
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "cannot resolve configuration directory").Fatal().Build()
	}
	cfg.BaseDir = base

	if err := ApplyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw configuration bytes after expanding ${VAR} references.
// It applies neither defaults nor validation.
func Parse(data []byte, asPlist bool) (*Configuration, error) {
	expanded := os.ExpandEnv(string(data))
	var cfg Configuration
	if asPlist {
		if _, err := plist.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("decode property list: %w", err)
		}
		return &cfg, nil
	}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &cfg, nil
}

func isPlist(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".plist")
}

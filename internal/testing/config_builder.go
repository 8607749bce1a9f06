package testing

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/doctool/internal/config"
)

// ConfigBuilder provides a fluent interface for creating test configurations.
type ConfigBuilder struct {
	config *config.Configuration
	t      testing.TB
}

// NewConfigBuilder creates a configuration for a project rooted in dir: sources under
// dir/src, output under dir/out and the parse cache under dir/cache.
func NewConfigBuilder(t testing.TB, dir string) *ConfigBuilder {
	return &ConfigBuilder{
		config: &config.Configuration{
			FrameworkName:     "Sample",
			Paths:             []string{filepath.Join(dir, "src")},
			OutputPath:        filepath.Join(dir, "out"),
			CachePath:         filepath.Join(dir, "cache"),
			HTMLOutputEnabled: true,
			Concurrency:       2,
			UUIDSeed:          "test",
		},
		t: t,
	}
}

// WithFramework sets the framework name.
func (cb *ConfigBuilder) WithFramework(name string) *ConfigBuilder {
	cb.config.FrameworkName = name
	return cb
}

// WithExcludes sets the exclude patterns.
func (cb *ConfigBuilder) WithExcludes(patterns ...string) *ConfigBuilder {
	cb.config.ExcludePatterns = patterns
	return cb
}

// WithUndocumented shows undocumented entities.
func (cb *ConfigBuilder) WithUndocumented() *ConfigBuilder {
	cb.config.ShowUndocumentedEntities = true
	return cb
}

// WithDocSet enables bundle output with test publisher data.
func (cb *ConfigBuilder) WithDocSet(bundleID string) *ConfigBuilder {
	cb.config.DocSetOutputEnabled = true
	cb.config.DocSetBundleID = bundleID
	cb.config.DocSetBundleVersion = "1.2.3"
	cb.config.DocSetPublisherIdentifier = "com.example"
	cb.config.DocSetPublisherName = "Example"
	return cb
}

// WithCacheBackend selects the parse cache backend.
func (cb *ConfigBuilder) WithCacheBackend(backend string) *ConfigBuilder {
	cb.config.CacheBackend = backend
	return cb
}

// WithLinkVerification turns on link checking after generation.
func (cb *ConfigBuilder) WithLinkVerification() *ConfigBuilder {
	cb.config.VerifyLinks = true
	return cb
}

// Build applies defaults and validation and returns the configuration.
func (cb *ConfigBuilder) Build() *config.Configuration {
	cb.t.Helper()
	if err := config.ApplyDefaults(cb.config); err != nil {
		cb.t.Fatalf("Failed to apply defaults: %v", err)
	}
	if err := config.Validate(cb.config); err != nil {
		cb.t.Fatalf("Invalid test configuration: %v", err)
	}
	return cb.config
}

// BuildAndSave writes the configuration as YAML to filePath and returns it unprocessed.
func (cb *ConfigBuilder) BuildAndSave(filePath string) *config.Configuration {
	cb.t.Helper()
	data, err := yaml.Marshal(cb.config)
	if err != nil {
		cb.t.Fatalf("Failed to marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), testDirPermissions); err != nil {
		cb.t.Fatalf("Failed to create config directory: %v", err)
	}
	if err := os.WriteFile(filePath, data, testFilePermissions); err != nil {
		cb.t.Fatalf("Failed to save config to %s: %v", filePath, err)
	}
	return cb.config
}

// WriteSources writes files (slash-separated paths relative to dir/src).
func WriteSources(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, "src", filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), testDirPermissions); err != nil {
			t.Fatalf("Failed to create source directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), testFilePermissions); err != nil {
			t.Fatalf("Failed to write source %s: %v", path, err)
		}
	}
}

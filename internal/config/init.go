package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
)

// Init writes an example configuration file to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path)).Build()
	}

	example := Configuration{
		CompilerArguments:         []string{"-I", "include", "-fobjc-arc"},
		FrameworkName:             "MyFramework",
		Paths:                     []string{"Sources"},
		ExcludePatterns:           []string{"*Private.h", "Tests/"},
		FileTypes:                 []string{".h"},
		OutputPath:                "build/docs",
		HTMLOutputEnabled:         true,
		DocSetOutputEnabled:       true,
		DocSetBundleID:            "com.example.MyFramework",
		DocSetPublisherIdentifier: "com.example.documentation",
		DocSetPublisherName:       "Example Inc.",
		CacheBackend:              CacheBackendFile,
		CachePath:                 ".doctool-cache",
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal example configuration").Build()
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write configuration file").
			WithContext("path", path).Build()
	}
	return nil
}

// Package testing contains fixtures and helpers shared by doctool tests: a fake front end,
// a sample library, a configuration builder and file assertions.
package testing

const (
	// testDirPermissions is the permission mode for creating test directories.
	testDirPermissions = 0o750

	// testFilePermissions is the permission mode for creating test files.
	testFilePermissions = 0o600
)

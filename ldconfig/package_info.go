// Package ldconfig defines the configuration file and environment variable surface of
// the SDK service components.
//
// Configuration can come from an INI-style file (LoadConfigFile), from environment
// variables (LoadConfigFromEnvironment), or from code by filling in a Config struct
// directly. All three paths end in ValidateConfig, which also canonicalizes settings
// such as Redis host/port versus URL.
package ldconfig

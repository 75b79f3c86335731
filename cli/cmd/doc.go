// Package cmd implements the subcommands of the tagtmpl CLI.
//
// Every command receives the [lang.Engine] of the invocation through its
// context (see [WithEngine]), so the template cache and metrics are shared
// by everything one process renders.
package cmd

var (
	// CacheIdentifier is the kong variable holding the path to the runtime
	// cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable holding the path to the YAML
	// configuration file.
	ConfigIdentifier = "config"
)

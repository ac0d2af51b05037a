// Package main hosts the cpsnap CLI entrypoint and command graph.
//
// The Cobra command tree fingerprints classpaths on demand, records named
// baselines in the state directory, checks classpaths against them, and
// polls for changes. It centralizes configuration resolution, logger setup,
// and snapshotter construction in commandContext so subcommands only deal
// with flags and output.
//
// check exits with status 2 when the classpath no longer matches its
// baseline and 1 on any other failure.
package main

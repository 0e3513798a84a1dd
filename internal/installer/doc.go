// Package installer invokes the npm CLI to populate extension install
// targets. The tool path is resolved once at construction; invocations are
// split into launch and wait phases so callers can scope their own
// serialization to the launch window.
package installer

// Package platform provides cross-platform permission handling. On Unix
// systems chmod applies directly; on Windows, which has no Unix permission
// bits, it is a no-op.
package platform

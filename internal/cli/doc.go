// Package cli defines the nodex command tree. Each command lives in its own
// file and registers itself on the root command in init. Commands stay thin:
// they parse flags, wire an extension manager from the workspace
// configuration, and render results.
package cli

// Package extension manages the lifecycle of installed extensions: resolving
// a name+version specifier into a concrete package, installing it into an
// isolated per-version folder under the extension root, enumerating what is
// installed, launching an extension's start script, and removing it. The
// Manager layers three synchronization tiers over the root: a shared root
// lock held for its lifetime, a process-wide gate around installer launches,
// and per-target locks keyed by install folder.
package extension

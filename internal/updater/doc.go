// Package updater implements self-update for the nodex binary. Release
// metadata comes from the GitHub API, with assets optionally served from a
// mirror; archives are checksum-verified, extracted, and swapped over the
// running executable with rollback on a failed verification. Check results
// are cached in the workspace cache tree so the startup banner stays off the
// network.
package updater

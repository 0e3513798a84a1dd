// Package npm talks to an npm-compatible package registry. It classifies
// version specifiers (exact version, range, dist-tag, local directory,
// tarball, git reference), fetches package metadata documents, and lists
// published versions in the order the registry reports them. Packument
// fetches can be backed by an on-disk cache to keep repeated resolutions
// off the network.
package npm

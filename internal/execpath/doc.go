// Package execpath resolves start commands to runnable executables. It covers
// command-line tokenization, PATH variable discovery and manipulation,
// executable lookup with Windows PATHEXT probing, and the scoped process PATH
// mutation needed to spawn script interpreters from paths containing spaces.
package execpath

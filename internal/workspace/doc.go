// Package workspace manages the ~/.nodex/ directory structure including the
// extensions installation root, the registry metadata cache, and the linked
// extensions file. It handles initialization, path resolution, permission
// enforcement, and health checks.
package workspace

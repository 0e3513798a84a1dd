// Package manifest models the npm package.json manifest: parsing, JSON Schema
// validation, and the script selection used to start an installed extension.
package manifest

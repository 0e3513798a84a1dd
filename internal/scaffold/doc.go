// Package scaffold generates new extension skeletons from embedded templates.
// It powers the "nodex init" command, producing a package.json with start and
// debug scripts, an index.js entry point, and a README ready for linking.
package scaffold

// Package linker maintains the links.yaml registry of local extension
// directories. Linked directories behave like installed extensions in
// listings and can be started directly, which lets extension authors run
// work-in-progress code without publishing or reinstalling.
package linker

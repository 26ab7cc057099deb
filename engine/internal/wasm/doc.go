// Package wasm reads and rewrites the sections of core module binaries
// that the loader needs: imports, exports and LEB128 integers.
package wasm

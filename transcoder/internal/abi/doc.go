// Package abi holds low-level Canonical ABI helpers shared by lowering and
// lifting: overflow-checked arithmetic, NaN canonicalization, char
// validation and UTF-16 surrogate repair.
//
// This package is internal to the transcoder.
package abi

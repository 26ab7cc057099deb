// Package transcoder implements Canonical ABI lowering and lifting for the
// primitive component value types.
//
// Lowering converts Go values into core values or linear-memory bytes;
// lifting is the inverse:
//
//	┌──────────────────────────────────────────────────────────┐
//	│ Go value ──[lower]──> flat []uint64 / memory bytes        │
//	│ Go value <──[lift]─── flat []uint64 / memory bytes        │
//	└──────────────────────────────────────────────────────────┘
//
// # Coercion
//
// Lowering accepts loosely typed input and coerces it per kind:
//
//	Kind            Coercion
//	──────────────────────────────────────────────────────────
//	unit            nothing pushed, any input accepted
//	bool            Truthy(v) as 0 or 1
//	s8/u8/s16/u16   reduce mod 2^n, reinterpret signed kinds
//	s32/u32         wrap around 32 bits
//	s64/u64         wrap an arbitrary-precision integer around 64 bits
//	f32/f64         numeric coercion, NaN canonicalized
//	char            exactly one code point, surrogates become U+FFFD
//	string          UTF-16 code units written by StringWriter
//
// Floats convert to integers the ECMAScript way: NaN and infinities are
// zero, anything else is truncated toward zero before reduction.
//
// # Strings
//
// StringWriter implements the three canonical string encodings. All
// three measure input in UTF-16 code units and allocate through the
// guest's realloc:
//
//	utf8           n bytes, grown once to 3n, shrunk to fit
//	utf16          2n bytes, unpaired surrogates become U+FFFD
//	latin1+utf16   n bytes, or 2n once a unit above 0xFF appears
//
// Any size above 2^31-1 bytes is rejected before it is allocated. A
// lowered string is the pair (pointer, byte length) for every encoding.
// When lifting latin1+utf16, an untagged length is Latin-1 bytes and a
// length with the 1<<31 tag bit is the byte length of UTF-16 data.
//
// # Lowerers and Lifters
//
// NewStackLowerer and NewMemLowerer build per-kind closures once, so
// missing memory or realloc options surface as configuration errors at
// construction. NewStackLifter and NewMemLifter are their inverses; UTF-16
// and Latin-1 strings are decoded with golang.org/x/text.
//
// # Thread Safety
//
// Lowerers and lifters hold no state of their own and are as safe as the
// Memory and Reallocator they use. A wazero module instance is not safe for
// concurrent calls, so neither are closures bound to one.
package transcoder

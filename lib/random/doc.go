// Package random provides the value allocator used by the document
// factories: random strings over a fixed 26-letter alphabet, strings that
// are unique per length, and primitive integer, float and boolean draws.
//
// An Allocator is created explicitly (New, NewSeeded) and passed to the
// factories that need it. Seeding it with a fixed value makes generation
// reproducible, which the tests rely on.
//
// Unique strings are tracked per length in concurrent maps. Allocation keeps
// drawing until an unused string is found; after a collision the allocator
// checks whether SaturationRatio of the combination space (26^length) has
// already been issued and, if so, gives up with common.ErrSaturationExceeded.
// Callers can then either abort or switch to a longer length.
package random

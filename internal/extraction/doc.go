// Package extraction turns free-form chat text into structured board updates.
//
// Two extractors share one pattern library:
//
//   - LooseExtractor scans raw user messages with positional phrase patterns
//     ("hosting it in X", "from March 15-17") and a keyword-gated generic
//     capture ("venue: X").
//   - LabeledExtractor scans assistant replies for labeled summary lines
//     ("**Timeline:** X") and never falls back to positional patterns.
//
// Both return at most one TaskUpdate per FieldKind, in canonical kind order,
// and both are pure: no I/O, no shared mutable state, no errors for misses.
//
// The pattern library is data. Adding a field kind means adding a KindRules
// entry to the library and a row to the destination table; no extractor
// control flow changes.
//
// # Library files
//
// A library can be loaded from YAML with LoadLibrary and kept current with a
// Watcher, which reloads the file on change and swaps the compiled library
// atomically. Extractors read the library through a LibrarySource, so a
// reload never races an in-flight Extract call.
package extraction

// Package ir provides the canonical data types for diffable.
//
// This package contains the value model, paths and change records only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Value is a sealed interface: Null, String, Int, Float, Bool, Array, Object
//   - The graph is plain, acyclic, serializable data
//   - Presence is explicit: a nil Value means "absent", Null{} means JSON null
//   - Canonical JSON (sorted keys, NFC strings) is the only persisted encoding
//   - All JSON tags use snake_case
package ir

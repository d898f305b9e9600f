// Package fsbridge routes ordinary file operations to pluggable storage
// backends on a per-path, per-operation basis.
//
// A [Router] owns one [Backend] and one [Mapper]. For every call the mapper
// decides whether the path is redirected and what it resolves to on the
// backend; routed writes go through an atomic temp-then-rename session so a
// file either appears fully written at its final location or not at all.
// Dual-path operations (copy, move, tree copy) may have each side resolve
// independently, with chunked streaming between the backend and the local
// environment when only one side is routed.
//
// fsbridge is a library contract, not an interception layer: callers decide
// to call the router instead of the os/filepath defaults, typically after
// checking [Router.Decide] themselves.
package fsbridge

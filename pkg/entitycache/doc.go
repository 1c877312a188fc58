// Package entitycache implements the Controlled Entity Cache: a
// readers-writer-locked registry mapping entityID to the enumerated
// state of one remote AVDECC entity. It owns the per-entity AECP/ACMP
// command transport (see transport.go), drives the enumeration engine
// asynchronously on discovery, tracks acquire/release ownership state,
// and broadcasts lifecycle events through an observerbus.Bus.
//
// Callers obtain read access through a Guard: a short-lived, read-only
// snapshot of one entity's cached fields. The cache guarantees the
// referenced EntityTree outlives the guard even if the entity is
// removed from the cache in the meantime.
package entitycache

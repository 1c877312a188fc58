// Package observerbus delivers lifecycle and state-change events to
// registered observers outside of any internal lock. The observer list
// uses copy-on-write semantics: Register/Unregister clone the list,
// Dispatch iterates an immutable snapshot, so a callback may itself
// call Register or Unregister without deadlocking or corrupting an
// in-progress dispatch.
package observerbus

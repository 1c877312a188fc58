// Package controller is the library's public-facing facade: a single
// event-loop goroutine runs every control operation's completion. API
// calls never block the caller's goroutine; the blocking AECP/ACMP
// round trip runs on a throwaway goroutine per call and posts its
// result back onto the event loop, where the cache mutation, observer
// notification and user callback run in that order. Received frames
// are handled on the protocol interface's receive goroutine, and the
// discovery engine, its liveness timers and the advertisement loop run
// on goroutines of their own; none of these run on the event loop.
package controller

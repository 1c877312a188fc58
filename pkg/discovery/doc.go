// Package discovery implements the ADP discovery engine: periodic
// ENTITY_DISCOVER broadcasts, consumption of ENTITY_AVAILABLE and
// ENTITY_DEPARTING advertisements, and per-entity liveness tracking.
package discovery

// Package avdecclog implements the process-wide logging sink used by
// every other package in this module. It is an observer-pattern sink:
// register one or more Logger implementations and every layer emits
// Event values to all of them. Layers {Generic, Serialization,
// ProtocolInterface, AemPayload, Entity, ControllerEntity,
// ControllerStateMachine, JsonSerializer} and levels {Trace, Debug,
// Info, Warn, Error, None} mirror the taxonomy described in spec §6.
package avdecclog

// Package avdeccstatus defines the status/error taxonomies surfaced by
// the controller: AEM command status codes (AECP), ACMP control status
// codes, and the construction-time error set raised by the protocol
// interface and controller state machine.
package avdeccstatus

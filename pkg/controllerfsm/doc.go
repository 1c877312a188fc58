// Package controllerfsm owns the local controller's own identity
// (entityID, entityModelID, ProgID) and advertising state machine:
// whether this process is itself discoverable as an AVDECC entity, and
// the duplicate-ProgID probe run before advertising starts.
package controllerfsm

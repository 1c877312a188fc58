package avdeccstatus

import "errors"

// Construction-time errors raised by the protocol interface and the
// controller state machine (spec §7).
var (
	ErrInvalidProtocolInterfaceType = errors.New("invalid protocol interface type")
	ErrInterfaceOpenError           = errors.New("failed to open network interface")
	ErrInterfaceNotFound            = errors.New("network interface not found")
	ErrInterfaceInvalid             = errors.New("network interface invalid")
	ErrDuplicateProgID              = errors.New("program ID already advertised on this segment")
	ErrInternalError                = errors.New("internal error")
)

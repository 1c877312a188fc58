package wire

import "github.com/i-n-g-o/avdecc/pkg/avdeccstatus"

// wireToAEMStatus is the subset of AEMStatus values that actually appear
// on the wire (library-level outcomes like TimedOut never do).
var wireToAEMStatus = []avdeccstatus.AEMStatus{
	avdeccstatus.AEMSuccess,
	avdeccstatus.AEMNotImplemented,
	avdeccstatus.AEMNoSuchDescriptor,
	avdeccstatus.AEMLockedByOther,
	avdeccstatus.AEMAcquiredByOther,
	avdeccstatus.AEMNotAuthenticated,
	avdeccstatus.AEMAuthenticationDisabled,
	avdeccstatus.AEMBadArguments,
	avdeccstatus.AEMNoResources,
	avdeccstatus.AEMInProgress,
	avdeccstatus.AEMEntityMisbehaving,
	avdeccstatus.AEMNotSupported,
	avdeccstatus.AEMStreamIsRunning,
}

// AEMStatusFromWire maps a raw AECP status byte to the library's AEMStatus.
func AEMStatusFromWire(b uint8) avdeccstatus.AEMStatus {
	if int(b) < len(wireToAEMStatus) {
		return wireToAEMStatus[b]
	}
	return avdeccstatus.AEMInternalError
}

// AEMStatusToWire maps an AEMStatus to its raw AECP status byte. Library-
// level outcomes that never appear on the wire map to 0xFF (unused).
func AEMStatusToWire(s avdeccstatus.AEMStatus) uint8 {
	for i, v := range wireToAEMStatus {
		if v == s {
			return uint8(i)
		}
	}
	return 0xFF
}

var wireToACMPStatus = []avdeccstatus.ACMPStatus{
	avdeccstatus.ACMPSuccess,
	avdeccstatus.ACMPListenerUnknownID,
	avdeccstatus.ACMPTalkerUnknownID,
	avdeccstatus.ACMPTalkerDestMacFail,
	avdeccstatus.ACMPTalkerNoStreamIndex,
	avdeccstatus.ACMPTalkerNoBandwidth,
	avdeccstatus.ACMPTalkerExclusive,
	avdeccstatus.ACMPListenerTalkerTimeout,
	avdeccstatus.ACMPListenerExclusive,
	avdeccstatus.ACMPStateUnavailable,
	avdeccstatus.ACMPNotConnected,
	avdeccstatus.ACMPNoSuchConnection,
	avdeccstatus.ACMPCouldNotSendMessage,
	avdeccstatus.ACMPTalkerMisbehaving,
	avdeccstatus.ACMPListenerMisbehaving,
	avdeccstatus.ACMPControllerNotAuthorized,
	avdeccstatus.ACMPIncompatibleRequest,
	avdeccstatus.ACMPNotSupported,
}

// ACMPStatusFromWire maps a raw ACMP status byte to the library's ACMPStatus.
func ACMPStatusFromWire(b uint8) avdeccstatus.ACMPStatus {
	if int(b) < len(wireToACMPStatus) {
		return wireToACMPStatus[b]
	}
	return avdeccstatus.ACMPInternalError
}

// ACMPStatusToWire maps an ACMPStatus to its raw ACMP status byte.
func ACMPStatusToWire(s avdeccstatus.ACMPStatus) uint8 {
	for i, v := range wireToACMPStatus {
		if v == s {
			return uint8(i)
		}
	}
	return 0xFF
}

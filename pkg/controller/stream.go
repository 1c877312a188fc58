package controller

import (
	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/observerbus"
	"github.com/i-n-g-o/avdecc/pkg/wire"
)

// ConnectionCallback is the completion callback for ConnectStream and
// DisconnectStream.
type ConnectionCallback func(status avdeccstatus.ACMPStatus)

// ConnectStream issues CONNECT_RX_COMMAND to the listener, asking it
// to bind talkerStream as its source. On success the listener's cached
// ConnectionInfo is updated and observers see
// onStreamConnectionChanged before done is invoked.
func (c *Controller) ConnectStream(talkerEntityID uint64, talkerStream entitymodel.DescriptorIndex, listenerEntityID uint64, listenerStream entitymodel.DescriptorIndex, done ConnectionCallback) {
	if done == nil {
		done = func(avdeccstatus.ACMPStatus) {}
	}
	if _, ok := c.cache.Get(listenerEntityID); !ok {
		done(avdeccstatus.ACMPUnknownEntity)
		return
	}
	req := wire.ACMPFrame{
		TalkerEntityID:   talkerEntityID,
		ListenerEntityID: listenerEntityID,
		TalkerUniqueID:   uint16(talkerStream),
		ListenerUniqueID: uint16(listenerStream),
	}
	go func() {
		resp, status, _ := c.transport.SendACMP(c.cmdCtx, wire.ACMPConnectRXCommand, req)
		c.post(func() {
			if status.IsSuccess() {
				info := &entitymodel.ConnectionInfo{
					TalkerEntityID:    entitymodel.UniqueIdentifier(talkerEntityID),
					TalkerStreamIndex: entitymodel.DescriptorIndex(resp.TalkerUniqueID),
					ConnectionFlags:   resp.Flags,
				}
				c.cache.Mutate(listenerEntityID, observerbus.EventStreamConnectionChanged, info, func(tree *entitymodel.EntityTree) {
					tree.SetConnectionInfo(listenerStream, info)
				})
			}
			done(status)
		})
	}()
}

// DisconnectStream issues DISCONNECT_RX_COMMAND to the listener. A
// NotConnected response is normalised to Success (the listener was
// already disconnected, which is the caller's desired end state). On
// any other failure the controller recovers by issuing GET_RX_STATE:
// a reported connectionCount of 0 still counts as Success, otherwise
// the original error is surfaced.
func (c *Controller) DisconnectStream(talkerEntityID uint64, talkerStream entitymodel.DescriptorIndex, listenerEntityID uint64, listenerStream entitymodel.DescriptorIndex, done ConnectionCallback) {
	if done == nil {
		done = func(avdeccstatus.ACMPStatus) {}
	}
	if _, ok := c.cache.Get(listenerEntityID); !ok {
		done(avdeccstatus.ACMPUnknownEntity)
		return
	}
	req := wire.ACMPFrame{
		TalkerEntityID:   talkerEntityID,
		ListenerEntityID: listenerEntityID,
		TalkerUniqueID:   uint16(talkerStream),
		ListenerUniqueID: uint16(listenerStream),
	}
	go func() {
		_, status, _ := c.transport.SendACMP(c.cmdCtx, wire.ACMPDisconnectRXCommand, req)
		finalStatus := status
		if status == avdeccstatus.ACMPNotConnected {
			finalStatus = avdeccstatus.ACMPSuccess
		} else if !status.IsSuccess() {
			finalStatus = c.recoverDisconnect(listenerEntityID, listenerStream, req, status)
		}
		c.post(func() {
			if finalStatus.IsSuccess() {
				c.cache.Mutate(listenerEntityID, observerbus.EventStreamConnectionChanged, (*entitymodel.ConnectionInfo)(nil), func(tree *entitymodel.EntityTree) {
					tree.SetConnectionInfo(listenerStream, nil)
				})
			}
			done(finalStatus)
		})
	}()
}

// recoverDisconnect is called off the loop goroutine after a
// DISCONNECT_RX_COMMAND fails with something other than NotConnected:
// it asks the listener directly whether it still thinks it is
// connected, since the disconnect may have landed despite the lost or
// malformed response.
func (c *Controller) recoverDisconnect(listenerEntityID uint64, listenerStream entitymodel.DescriptorIndex, req wire.ACMPFrame, original avdeccstatus.ACMPStatus) avdeccstatus.ACMPStatus {
	resp, status, _ := c.transport.SendACMP(c.cmdCtx, wire.ACMPGetRXStateCommand, req)
	if !status.IsSuccess() {
		return original
	}
	if resp.ConnectionCount == 0 {
		return avdeccstatus.ACMPSuccess
	}
	return original
}

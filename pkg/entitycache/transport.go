package entitycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/i-n-g-o/avdecc/pkg/avdecclog"
	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
	"github.com/i-n-g-o/avdecc/pkg/pipeline"
	"github.com/i-n-g-o/avdecc/pkg/protocolif"
	"github.com/i-n-g-o/avdecc/pkg/wire"
)

// aecpTimeout and acmpTimeout match the 250ms deadline the command
// pipeline contract specifies for both protocols; one retry is issued
// on top of the original attempt.
const (
	aecpTimeout = 250 * time.Millisecond
	acmpTimeout = 250 * time.Millisecond
	commandRetries = 1
)

// Transport is the AECP/ACMP command pipeline shared by every
// ControlledEntity in a Cache: one pipeline.Pipeline per remote entity,
// created lazily on first use and torn down when the entity is
// removed. It satisfies enum.AECPTransport and enum.ACMPTransport so
// the same plumbing serves both the enumeration engine and the
// controller facade's control operations.
type Transport struct {
	pi                 protocolif.ProtocolInterface
	controllerEntityID uint64
	logger             avdecclog.Logger

	aecpTimeout time.Duration
	acmpTimeout time.Duration
	retries     int

	mu   sync.Mutex
	aecp map[uint64]*pipeline.Pipeline
	acmp map[uint64]*pipeline.Pipeline
}

// NewTransport creates a Transport sending on pi as controllerEntityID
// and registers its response handler with pi. logger may be
// avdecclog.NoopLogger{}.
func NewTransport(pi protocolif.ProtocolInterface, controllerEntityID uint64, logger avdecclog.Logger) *Transport {
	if logger == nil {
		logger = avdecclog.NoopLogger{}
	}
	t := &Transport{
		pi:                 pi,
		controllerEntityID: controllerEntityID,
		logger:             logger,
		aecpTimeout:        aecpTimeout,
		acmpTimeout:        acmpTimeout,
		retries:            commandRetries,
		aecp:               make(map[uint64]*pipeline.Pipeline),
		acmp:               make(map[uint64]*pipeline.Pipeline),
	}
	pi.OnFrame(t.handleFrame)
	return t
}

// SetCommandTiming overrides the per-attempt response deadline and
// retry count used for pipelines created from this point on; pipelines
// already created (e.g. from an in-progress enumeration) keep their
// original timing. Call before any command is sent, from
// avdeccconfig.Config.CommandTimeout/CommandRetries.
func (t *Transport) SetCommandTiming(timeout time.Duration, retries int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aecpTimeout = timeout
	t.acmpTimeout = timeout
	t.retries = retries
}

func (t *Transport) handleFrame(f protocolif.Frame) {
	hdr, err := wire.DecodeCommonHeader(f.Payload)
	if err != nil {
		return
	}
	switch hdr.Subtype {
	case wire.SubtypeAECP:
		t.handleAECPFrame(f.Payload)
	case wire.SubtypeACMP:
		t.handleACMPFrame(f.Payload)
	}
}

func (t *Transport) handleAECPFrame(payload []byte) {
	frame, err := wire.DecodeAECP(payload)
	if err != nil || frame.MessageType != wire.AECPAEMResponse {
		return
	}
	p := t.lookupPipeline(t.aecp, frame.TargetEntityID)
	if p == nil {
		return
	}
	p.HandleResponse(frame.SequenceID, encodeAECPResult(frame))
}

func (t *Transport) handleACMPFrame(payload []byte) {
	frame, err := wire.DecodeACMP(payload)
	if err != nil {
		return
	}
	key := acmpPipelineKey(frame.MessageType, frame)
	p := t.lookupPipeline(t.acmp, key)
	if p == nil {
		return
	}
	p.HandleResponse(frame.SequenceID, payload)
}

func (t *Transport) lookupPipeline(m map[uint64]*pipeline.Pipeline, key uint64) *pipeline.Pipeline {
	t.mu.Lock()
	defer t.mu.Unlock()
	return m[key]
}

func (t *Transport) aecpPipeline(target uint64) *pipeline.Pipeline {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.aecp[target]
	if !ok {
		p = pipeline.New(target, t.send, t.aecpTimeout, t.retries)
		t.aecp[target] = p
	}
	return p
}

func (t *Transport) acmpPipeline(target uint64) *pipeline.Pipeline {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.acmp[target]
	if !ok {
		p = pipeline.New(target, t.send, t.acmpTimeout, t.retries)
		t.acmp[target] = p
	}
	return p
}

func (t *Transport) send(ctx context.Context, frame []byte) error {
	return t.pi.Send(ctx, protocolif.AvdeccMulticastMAC, frame)
}

// Release closes and discards the pipelines addressing target, called
// when the Cache removes a ControlledEntity. Any command still
// in-flight completes with pipeline.ErrClosed, which SendAEM/SendACMP
// surface as AEMUnknownEntity/ACMPUnknownEntity.
func (t *Transport) Release(target uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.aecp[target]; ok {
		p.Close()
		delete(t.aecp, target)
	}
	if p, ok := t.acmp[target]; ok {
		p.Close()
		delete(t.acmp, target)
	}
}

// aecpResult packs the decoded status alongside the response payload
// so SendAEM can split them back apart without a second round trip
// through the wire codec.
type aecpResult struct {
	status  avdeccstatus.AEMStatus
	payload []byte
}

func encodeAECPResult(frame wire.AECPFrame) []byte {
	out := make([]byte, 1+len(frame.Payload))
	out[0] = frame.Status
	copy(out[1:], frame.Payload)
	return out
}

func decodeAECPResult(raw []byte) aecpResult {
	if len(raw) == 0 {
		return aecpResult{status: avdeccstatus.AEMInternalError}
	}
	return aecpResult{status: avdeccstatus.AEMStatus(raw[0]), payload: raw[1:]}
}

// SendAEM implements enum.AECPTransport, and is also used directly by
// the controller facade for acquire/release/set-* operations.
func (t *Transport) SendAEM(ctx context.Context, target uint64, cmd wire.AECPCommandType, payload []byte) (avdeccstatus.AEMStatus, []byte, error) {
	p := t.aecpPipeline(target)
	resp, err := p.Submit(ctx, func(seq uint16) []byte {
		return wire.AECPFrame{
			MessageType:        wire.AECPAEMCommand,
			TargetEntityID:     target,
			ControllerEntityID: t.controllerEntityID,
			SequenceID:         seq,
			CommandType:        cmd,
			Payload:            payload,
		}.Encode()
	})
	if err != nil {
		return t.statusForPipelineError(err), nil, nil
	}
	result := decodeAECPResult(resp)
	return result.status, result.payload, nil
}

// statusForPipelineError maps a pipeline-layer failure to the AEM
// status surfaced to callers. context.Canceled is folded into
// AEMUnknownEntity: it is how Controller.Close cuts off commands
// still in flight when the facade shuts down, standing in for the
// "Aborted" outcome the status taxonomy has no dedicated value for.
func (t *Transport) statusForPipelineError(err error) avdeccstatus.AEMStatus {
	switch {
	case errors.Is(err, pipeline.ErrTimedOut):
		return avdeccstatus.AEMTimedOut
	case errors.Is(err, pipeline.ErrClosed), errors.Is(err, context.Canceled):
		return avdeccstatus.AEMUnknownEntity
	default:
		return avdeccstatus.AEMNetworkError
	}
}

// acmpPipelineKey picks the entity this command/response pair is
// addressed to: the listener for RX-side exchanges, the talker for
// TX-side ones, matching which end of the connection actually answers.
func acmpPipelineKey(msgType wire.ACMPMessageType, frame wire.ACMPFrame) uint64 {
	switch msgType {
	case wire.ACMPConnectRXCommand, wire.ACMPConnectRXResponse,
		wire.ACMPDisconnectRXCommand, wire.ACMPDisconnectRXResponse,
		wire.ACMPGetRXStateCommand, wire.ACMPGetRXStateResponse:
		return frame.ListenerEntityID
	default:
		return frame.TalkerEntityID
	}
}

// SendACMP implements enum.ACMPTransport, and is also used directly by
// the controller facade for connect/disconnect operations.
func (t *Transport) SendACMP(ctx context.Context, msgType wire.ACMPMessageType, req wire.ACMPFrame) (wire.ACMPFrame, avdeccstatus.ACMPStatus, error) {
	target := acmpPipelineKey(msgType, req)
	p := t.acmpPipeline(target)
	resp, err := p.Submit(ctx, func(seq uint16) []byte {
		req.MessageType = msgType
		req.ControllerEntityID = t.controllerEntityID
		req.SequenceID = seq
		return req.Encode()
	})
	if err != nil {
		return wire.ACMPFrame{}, t.acmpStatusForPipelineError(err), nil
	}
	frame, err := wire.DecodeACMP(resp)
	if err != nil {
		return wire.ACMPFrame{}, avdeccstatus.ACMPProtocolError, fmt.Errorf("entitycache: decoding ACMP response: %w", err)
	}
	return frame, avdeccstatus.ACMPStatus(frame.Status), nil
}

func (t *Transport) acmpStatusForPipelineError(err error) avdeccstatus.ACMPStatus {
	switch {
	case errors.Is(err, pipeline.ErrTimedOut):
		return avdeccstatus.ACMPTimedOut
	case errors.Is(err, pipeline.ErrClosed), errors.Is(err, context.Canceled):
		return avdeccstatus.ACMPUnknownEntity
	default:
		return avdeccstatus.ACMPNetworkError
	}
}

package enum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i-n-g-o/avdecc/pkg/avdecclog"
	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/wire"
)

// ErrEnumerationFailed wraps a mandatory-descriptor failure that could
// not be resolved after exhausting retries.
var ErrEnumerationFailed = errors.New("enum: enumeration failed")

// retryDelays is the backoff schedule applied between attempts at a
// transient AEM/ACMP failure: 250ms, 500ms, 1s.
var retryDelays = []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second}

// AECPTransport sends one AEM command to targetEntityID and reports the
// peer's decoded status and response payload. Implementations are
// expected to serialize commands per target (see pkg/pipeline) and may
// be shared across concurrent Engine calls for different targets.
type AECPTransport interface {
	SendAEM(ctx context.Context, targetEntityID uint64, commandType wire.AECPCommandType, payload []byte) (avdeccstatus.AEMStatus, []byte, error)
}

// ACMPTransport sends one ACMP command and reports the peer's response
// frame and decoded status.
type ACMPTransport interface {
	SendACMP(ctx context.Context, messageType wire.ACMPMessageType, req wire.ACMPFrame) (wire.ACMPFrame, avdeccstatus.ACMPStatus, error)
}

// SeedFunc looks up a previously-persisted static Configuration for
// (entityModelID, configIndex), letting Engine skip the child-descriptor
// walk for a configuration it has already enumerated in a prior run.
// Dynamic state is always re-queried live regardless of a seed hit.
type SeedFunc func(entityModelID uint64, configIndex entitymodel.DescriptorIndex) (*entitymodel.Configuration, bool)

// Engine walks one entity's AEM descriptor tree and dynamic state.
type Engine struct {
	aecp   AECPTransport
	acmp   ACMPTransport
	logger avdecclog.Logger
	seed   SeedFunc
}

// New creates an enumeration engine using the given transports. logger
// may be avdecclog.NoopLogger{}.
func New(aecp AECPTransport, acmp ACMPTransport, logger avdecclog.Logger) *Engine {
	return &Engine{aecp: aecp, acmp: acmp, logger: logger}
}

// UseSeed installs fn as the engine's static-model seed source. Calling
// it with nil (the default) disables seeding.
func (e *Engine) UseSeed(fn SeedFunc) {
	e.seed = fn
}

func (e *Engine) log(level avdecclog.Level, target uint64, msg string) {
	e.logger.Log(avdecclog.NewEvent(level, avdecclog.LayerEntity, "", entitymodel.UniqueIdentifier(target).String(), msg))
}

// aemWithRetry issues one AEM command, retrying on transient status per
// retryDelays. Mandatory failures are wrapped in ErrEnumerationFailed;
// non-mandatory failures are logged and returned to the caller to skip.
func (e *Engine) aemWithRetry(ctx context.Context, target uint64, cmd wire.AECPCommandType, payload []byte, mandatory bool) ([]byte, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		status, resp, err := e.aecp.SendAEM(ctx, target, cmd, payload)
		switch {
		case err != nil:
			lastErr = err
		case status.IsSuccess():
			return resp, nil
		case !status.IsTransient():
			lastErr = fmt.Errorf("enum: %s failed: %s", cmd, status)
			if mandatory {
				return nil, fmt.Errorf("%w: %v", ErrEnumerationFailed, lastErr)
			}
			e.log(avdecclog.LevelWarn, target, lastErr.Error())
			return nil, lastErr
		default:
			lastErr = fmt.Errorf("enum: %s transient failure: %s", cmd, status)
		}
		if attempt >= len(retryDelays) {
			break
		}
		select {
		case <-time.After(retryDelays[attempt]):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if mandatory {
		return nil, fmt.Errorf("%w: %v", ErrEnumerationFailed, lastErr)
	}
	e.log(avdecclog.LevelWarn, target, lastErr.Error())
	return nil, lastErr
}

func (e *Engine) readDescriptor(ctx context.Context, target uint64, configIndex uint16, descType entitymodel.DescriptorType, descIndex entitymodel.DescriptorIndex, mandatory bool) ([]byte, error) {
	req := wire.ReadDescriptorRequest{
		ConfigurationIndex: configIndex,
		DescriptorType:     uint16(descType),
		DescriptorIndex:    uint16(descIndex),
	}
	return e.aemWithRetry(ctx, target, wire.AECPReadDescriptor, req.Encode(), mandatory)
}

// Enumerate walks target's descriptor tree and dynamic state, returning
// a fully populated EntityTree. Failure to read the Entity descriptor,
// or the active configuration's own descriptor, is fatal; everything
// else is best-effort and logged on failure.
func (e *Engine) Enumerate(ctx context.Context, target uint64) (*entitymodel.EntityTree, error) {
	entityBody, err := e.readDescriptor(ctx, target, 0, entitymodel.DescriptorEntity, 0, true)
	if err != nil {
		return nil, err
	}
	identity, err := wire.DecodeEntityDescriptor(entityBody)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding entity descriptor: %v", ErrEnumerationFailed, err)
	}
	if uint64(identity.EntityID) != target {
		identity.EntityID = entitymodel.UniqueIdentifier(target)
	}

	tree := entitymodel.NewEntityTree(identity)
	currentConfig := identity.CurrentConfiguration
	if resp, err := e.aemWithRetry(ctx, target, wire.AECPGetConfiguration, wire.ConfigurationPayload{}.Encode(), false); err == nil {
		if p, err := wire.DecodeConfigurationPayload(resp); err == nil {
			currentConfig = entitymodel.DescriptorIndex(p.ConfigurationIndex)
		}
	}
	tree.SetCurrentConfiguration(currentConfig)

	for i := entitymodel.DescriptorIndex(0); i < entitymodel.DescriptorIndex(identity.ConfigurationsCount); i++ {
		active := i == currentConfig
		cfg, err := e.enumerateConfiguration(ctx, target, i, active, tree, uint64(identity.EntityModelID))
		if err != nil {
			if active {
				return nil, err
			}
			e.log(avdecclog.LevelWarn, target, fmt.Sprintf("skipping configuration %d: %v", i, err))
			continue
		}
		tree.SetConfiguration(i, cfg)
	}

	return tree, nil
}

func (e *Engine) enumerateConfiguration(ctx context.Context, target uint64, index entitymodel.DescriptorIndex, active bool, tree *entitymodel.EntityTree, entityModelID uint64) (*entitymodel.Configuration, error) {
	body, err := e.readDescriptor(ctx, target, 0, entitymodel.DescriptorConfiguration, index, active)
	if err != nil {
		return nil, err
	}
	descriptor, err := wire.DecodeConfigurationDescriptor(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding configuration %d: %v", ErrEnumerationFailed, index, err)
	}

	if e.seed != nil {
		if seeded, ok := e.seed(entityModelID, index); ok && sameDescriptorCounts(seeded.Descriptor.DescriptorCounts, descriptor.DescriptorCounts) {
			if active {
				e.enumerateDynamicState(ctx, target, seeded, tree)
			}
			return seeded, nil
		}
	}

	cfg := entitymodel.NewConfiguration()
	cfg.Descriptor = descriptor

	g, gctx := errgroup.WithContext(ctx)
	for descType, count := range descriptor.DescriptorCounts {
		descType, count := descType, count
		for idx := uint16(0); idx < count; idx++ {
			idx := entitymodel.DescriptorIndex(idx)
			g.Go(func() error {
				e.readChildDescriptor(gctx, target, uint16(index), descType, idx, cfg)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if active {
		e.enumerateDynamicState(ctx, target, cfg, tree)
	}
	return cfg, nil
}

// sameDescriptorCounts reports whether a seeded configuration's child
// descriptor counts still match what the live device just reported,
// guarding against a stale seed surviving a firmware/model change that
// didn't bump EntityModelID.
func sameDescriptorCounts(a, b map[entitymodel.DescriptorType]uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func (e *Engine) readChildDescriptor(ctx context.Context, target uint64, configIndex uint16, descType entitymodel.DescriptorType, index entitymodel.DescriptorIndex, cfg *entitymodel.Configuration) {
	body, err := e.readDescriptor(ctx, target, configIndex, descType, index, false)
	if err != nil {
		e.log(avdecclog.LevelWarn, target, fmt.Sprintf("skipping %s[%d]: %v", descType, index, err))
		return
	}
	switch descType {
	case entitymodel.DescriptorAudioUnit:
		if d, err := wire.DecodeAudioUnitDescriptor(body); err == nil {
			cfg.AudioUnits[index] = &d
		}
	case entitymodel.DescriptorStreamInput:
		if d, err := wire.DecodeStreamDescriptor(body); err == nil {
			cfg.StreamInputs[index] = &d
		}
	case entitymodel.DescriptorStreamOutput:
		if d, err := wire.DecodeStreamDescriptor(body); err == nil {
			cfg.StreamOutputs[index] = &d
		}
	case entitymodel.DescriptorJackInput:
		if d, err := wire.DecodeJackDescriptor(body); err == nil {
			cfg.JackInputs[index] = &d
		}
	case entitymodel.DescriptorJackOutput:
		if d, err := wire.DecodeJackDescriptor(body); err == nil {
			cfg.JackOutputs[index] = &d
		}
	case entitymodel.DescriptorAvbInterface:
		if d, err := wire.DecodeAvbInterfaceDescriptor(body); err == nil {
			cfg.AvbInterfaces[index] = &d
		}
	case entitymodel.DescriptorClockSource:
		if d, err := wire.DecodeClockSourceDescriptor(body); err == nil {
			cfg.ClockSources[index] = &d
		}
	case entitymodel.DescriptorMemoryObject:
		if d, err := wire.DecodeMemoryObjectDescriptor(body); err == nil {
			cfg.MemoryObjects[index] = &d
		}
	case entitymodel.DescriptorLocale:
		if d, err := wire.DecodeLocaleDescriptor(body); err == nil {
			cfg.Locales[index] = &d
		}
	case entitymodel.DescriptorStrings:
		if d, err := wire.DecodeStringsDescriptor(body); err == nil {
			cfg.Strings[index] = &d
		}
	case entitymodel.DescriptorStreamPortInput:
		if d, err := wire.DecodeStreamPortDescriptor(body); err == nil {
			cfg.StreamPortInputs[index] = &d
		}
	case entitymodel.DescriptorStreamPortOutput:
		if d, err := wire.DecodeStreamPortDescriptor(body); err == nil {
			cfg.StreamPortOutputs[index] = &d
		}
	case entitymodel.DescriptorAudioCluster:
		if d, err := wire.DecodeAudioClusterDescriptor(body); err == nil {
			cfg.AudioClusters[index] = &d
		}
	case entitymodel.DescriptorAudioMap:
		if d, err := wire.DecodeAudioMapDescriptor(body); err == nil {
			cfg.AudioMaps[index] = &d
		}
	case entitymodel.DescriptorClockDomain:
		if d, err := wire.DecodeClockDomainDescriptor(body); err == nil {
			cfg.ClockDomains[index] = &d
		}
	}
}

// enumerateDynamicState fans out the dynamic-state queries (names,
// stream format, sampling rate, clock source, audio maps, memory
// object length) for the active configuration, plus the ACMP
// GET_RX_STATE probe for every listener stream, writing results
// directly into tree. Individual failures are logged and do not fail
// enumeration as a whole.
func (e *Engine) enumerateDynamicState(ctx context.Context, target uint64, cfg *entitymodel.Configuration, tree *entitymodel.EntityTree) {
	var g errgroup.Group

	for idx := range cfg.AudioUnits {
		idx := idx
		g.Go(func() error {
			e.queryName(ctx, target, entitymodel.DescriptorAudioUnit, idx, tree)
			e.querySamplingRate(ctx, target, idx, tree)
			return nil
		})
	}
	for idx := range cfg.StreamInputs {
		idx := idx
		g.Go(func() error {
			e.queryName(ctx, target, entitymodel.DescriptorStreamInput, idx, tree)
			e.queryStreamFormat(ctx, target, entitymodel.DescriptorStreamInput, idx, tree)
			e.queryStreamInfo(ctx, target, entitymodel.DescriptorStreamInput, idx, tree)
			e.probeRXState(ctx, target, idx, tree)
			return nil
		})
	}
	for idx := range cfg.StreamOutputs {
		idx := idx
		g.Go(func() error {
			e.queryName(ctx, target, entitymodel.DescriptorStreamOutput, idx, tree)
			e.queryStreamFormat(ctx, target, entitymodel.DescriptorStreamOutput, idx, tree)
			e.queryStreamInfo(ctx, target, entitymodel.DescriptorStreamOutput, idx, tree)
			return nil
		})
	}
	for idx := range cfg.AvbInterfaces {
		idx := idx
		g.Go(func() error { e.queryName(ctx, target, entitymodel.DescriptorAvbInterface, idx, tree); return nil })
	}
	for idx := range cfg.ClockSources {
		idx := idx
		g.Go(func() error { e.queryName(ctx, target, entitymodel.DescriptorClockSource, idx, tree); return nil })
	}
	for idx := range cfg.AudioClusters {
		idx := idx
		g.Go(func() error { e.queryName(ctx, target, entitymodel.DescriptorAudioCluster, idx, tree); return nil })
	}
	for idx := range cfg.MemoryObjects {
		idx := idx
		g.Go(func() error {
			e.queryName(ctx, target, entitymodel.DescriptorMemoryObject, idx, tree)
			e.queryMemoryObjectLength(ctx, target, idx, tree)
			return nil
		})
	}
	for idx := range cfg.ClockDomains {
		idx := idx
		g.Go(func() error {
			e.queryName(ctx, target, entitymodel.DescriptorClockDomain, idx, tree)
			e.queryClockSource(ctx, target, idx, tree)
			return nil
		})
	}
	for idx := range cfg.StreamPortInputs {
		idx := idx
		g.Go(func() error {
			e.queryAudioMap(ctx, target, entitymodel.DescriptorStreamPortInput, idx, tree)
			return nil
		})
	}
	for idx := range cfg.StreamPortOutputs {
		idx := idx
		g.Go(func() error {
			e.queryAudioMap(ctx, target, entitymodel.DescriptorStreamPortOutput, idx, tree)
			return nil
		})
	}

	_ = g.Wait()
}

func (e *Engine) queryName(ctx context.Context, target uint64, descType entitymodel.DescriptorType, index entitymodel.DescriptorIndex, tree *entitymodel.EntityTree) {
	req := wire.NamePayload{DescriptorType: uint16(descType), DescriptorIndex: uint16(index)}
	resp, err := e.aemWithRetry(ctx, target, wire.AECPGetName, req.Encode(), false)
	if err != nil {
		return
	}
	p, err := wire.DecodeNamePayload(resp)
	if err != nil {
		return
	}
	tree.SetName(entitymodel.DescriptorKey{Type: descType, Index: index}, entitymodel.AvdeccFixedString(p.Name))
}

func (e *Engine) queryStreamFormat(ctx context.Context, target uint64, descType entitymodel.DescriptorType, index entitymodel.DescriptorIndex, tree *entitymodel.EntityTree) {
	req := wire.StreamFormatPayload{DescriptorType: uint16(descType), DescriptorIndex: uint16(index)}
	resp, err := e.aemWithRetry(ctx, target, wire.AECPGetStreamFormat, req.Encode(), false)
	if err != nil {
		return
	}
	p, err := wire.DecodeStreamFormatPayload(resp)
	if err != nil {
		return
	}
	tree.SetStreamFormat(entitymodel.DescriptorKey{Type: descType, Index: index}, p.StreamFormat)
}

// queryStreamInfo reports a stream's live running state as seen by the
// entity itself, so a freshly enumerated stream that was already
// streaming before this controller attached doesn't read as stopped
// until this controller issues its own START_STREAMING/STOP_STREAMING.
func (e *Engine) queryStreamInfo(ctx context.Context, target uint64, descType entitymodel.DescriptorType, index entitymodel.DescriptorIndex, tree *entitymodel.EntityTree) {
	req := wire.DescriptorRefPayload{DescriptorType: uint16(descType), DescriptorIndex: uint16(index)}
	resp, err := e.aemWithRetry(ctx, target, wire.AECPGetStreamInfo, req.Encode(), false)
	if err != nil {
		return
	}
	p, err := wire.DecodeStreamInfoPayload(resp)
	if err != nil {
		return
	}
	tree.SetStreamRunning(entitymodel.DescriptorKey{Type: descType, Index: index}, p.Flags&wire.StreamInfoActive != 0)
}

func (e *Engine) querySamplingRate(ctx context.Context, target uint64, audioUnit entitymodel.DescriptorIndex, tree *entitymodel.EntityTree) {
	req := wire.SamplingRatePayload{DescriptorType: uint16(entitymodel.DescriptorAudioUnit), DescriptorIndex: uint16(audioUnit)}
	resp, err := e.aemWithRetry(ctx, target, wire.AECPGetSamplingRate, req.Encode(), false)
	if err != nil {
		return
	}
	p, err := wire.DecodeSamplingRatePayload(resp)
	if err != nil {
		return
	}
	tree.SetSamplingRate(audioUnit, p.SamplingRate)
}

func (e *Engine) queryClockSource(ctx context.Context, target uint64, clockDomain entitymodel.DescriptorIndex, tree *entitymodel.EntityTree) {
	req := wire.ClockSourcePayload{DescriptorType: uint16(entitymodel.DescriptorClockDomain), DescriptorIndex: uint16(clockDomain)}
	resp, err := e.aemWithRetry(ctx, target, wire.AECPGetClockSource, req.Encode(), false)
	if err != nil {
		return
	}
	p, err := wire.DecodeClockSourcePayload(resp)
	if err != nil {
		return
	}
	tree.SetClockSource(clockDomain, entitymodel.DescriptorIndex(p.ClockSourceIndex))
}

func (e *Engine) queryMemoryObjectLength(ctx context.Context, target uint64, memoryObject entitymodel.DescriptorIndex, tree *entitymodel.EntityTree) {
	req := wire.MemoryObjectLengthPayload{ConfigurationIndex: 0, DescriptorIndex: uint16(memoryObject)}
	resp, err := e.aemWithRetry(ctx, target, wire.AECPGetMemoryObjectLength, req.Encode(), false)
	if err != nil {
		return
	}
	p, err := wire.DecodeMemoryObjectLengthPayload(resp)
	if err != nil {
		return
	}
	tree.SetMemoryObjectLength(memoryObject, p.Length)
}

// queryAudioMap paginates GET_AUDIO_MAP by MapIndex until the peer
// reports no further pages, appending each page's mappings to tree.
func (e *Engine) queryAudioMap(ctx context.Context, target uint64, descType entitymodel.DescriptorType, index entitymodel.DescriptorIndex, tree *entitymodel.EntityTree) {
	portKey := entitymodel.DescriptorKey{Type: descType, Index: index}
	for mapIndex := uint16(0); ; mapIndex++ {
		req := wire.AudioMapPayload{DescriptorType: uint16(descType), DescriptorIndex: uint16(index), MapIndex: mapIndex}
		resp, err := e.aemWithRetry(ctx, target, wire.AECPGetAudioMap, req.Encode(), false)
		if err != nil {
			return
		}
		p, err := wire.DecodeAudioMapPayload(resp)
		if err != nil {
			return
		}
		mappings := make([]entitymodel.AudioMapping, 0, len(p.Mappings))
		for _, m := range p.Mappings {
			mappings = append(mappings, entitymodel.AudioMapping{
				StreamChannel:  m.StreamChannel,
				ClusterOffset:  m.ClusterOffset,
				ClusterChannel: m.ClusterChannel,
			})
		}
		tree.AddAudioMappings(portKey, mappings)
		if p.NumberOfMaps == 0 || mapIndex+1 >= p.NumberOfMaps {
			return
		}
	}
}

// probeRXState issues an ACMP GET_RX_STATE against a listener stream
// and records its connection state. A TalkerEntityID of 0 in the
// response means the listener has no current connection.
func (e *Engine) probeRXState(ctx context.Context, target uint64, listenerStream entitymodel.DescriptorIndex, tree *entitymodel.EntityTree) {
	req := wire.ACMPFrame{
		MessageType:      wire.ACMPGetRXStateCommand,
		ListenerEntityID: target,
		ListenerUniqueID: uint16(listenerStream),
	}
	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, status, err := e.acmp.SendACMP(ctx, wire.ACMPGetRXStateCommand, req)
		if err == nil && status.IsSuccess() {
			if resp.TalkerEntityID == 0 {
				tree.SetConnectionInfo(listenerStream, nil)
			} else {
				tree.SetConnectionInfo(listenerStream, &entitymodel.ConnectionInfo{
					TalkerEntityID:    entitymodel.UniqueIdentifier(resp.TalkerEntityID),
					TalkerStreamIndex: entitymodel.DescriptorIndex(resp.TalkerUniqueID),
					ConnectionFlags:   resp.Flags,
				})
			}
			return
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("enum: GET_RX_STATE failed: %s", status)
			if !status.IsTransient() {
				e.log(avdecclog.LevelWarn, target, lastErr.Error())
				return
			}
		}
		if attempt >= len(retryDelays) {
			e.log(avdecclog.LevelWarn, target, lastErr.Error())
			return
		}
		select {
		case <-time.After(retryDelays[attempt]):
		case <-ctx.Done():
			return
		}
	}
}

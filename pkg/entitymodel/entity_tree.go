package entitymodel

import (
	"errors"
	"sync"
)

// EntityTree errors.
var (
	ErrNoSuchDescriptor      = errors.New("no such descriptor")
	ErrDuplicateDescriptor   = errors.New("duplicate descriptor")
	ErrInvalidConfiguration  = errors.New("invalid configuration index")
)

// Configuration is one configuration's static descriptor tree: every
// child descriptor keyed by (DescriptorType, DescriptorIndex).
type Configuration struct {
	Descriptor  ConfigurationDescriptor
	AudioUnits  map[DescriptorIndex]*AudioUnitDescriptor
	StreamInputs  map[DescriptorIndex]*StreamDescriptor
	StreamOutputs map[DescriptorIndex]*StreamDescriptor
	JackInputs    map[DescriptorIndex]*JackDescriptor
	JackOutputs   map[DescriptorIndex]*JackDescriptor
	AvbInterfaces map[DescriptorIndex]*AvbInterfaceDescriptor
	ClockSources  map[DescriptorIndex]*ClockSourceDescriptor
	MemoryObjects map[DescriptorIndex]*MemoryObjectDescriptor
	Locales       map[DescriptorIndex]*LocaleDescriptor
	Strings       map[DescriptorIndex]*StringsDescriptor
	StreamPortInputs  map[DescriptorIndex]*StreamPortDescriptor
	StreamPortOutputs map[DescriptorIndex]*StreamPortDescriptor
	AudioClusters map[DescriptorIndex]*AudioClusterDescriptor
	AudioMaps     map[DescriptorIndex]*AudioMapDescriptor
	ClockDomains  map[DescriptorIndex]*ClockDomainDescriptor
}

// NewConfiguration returns an empty configuration ready to be populated
// during enumeration.
func NewConfiguration() *Configuration {
	return &Configuration{
		AudioUnits:        make(map[DescriptorIndex]*AudioUnitDescriptor),
		StreamInputs:      make(map[DescriptorIndex]*StreamDescriptor),
		StreamOutputs:     make(map[DescriptorIndex]*StreamDescriptor),
		JackInputs:        make(map[DescriptorIndex]*JackDescriptor),
		JackOutputs:       make(map[DescriptorIndex]*JackDescriptor),
		AvbInterfaces:     make(map[DescriptorIndex]*AvbInterfaceDescriptor),
		ClockSources:      make(map[DescriptorIndex]*ClockSourceDescriptor),
		MemoryObjects:     make(map[DescriptorIndex]*MemoryObjectDescriptor),
		Locales:           make(map[DescriptorIndex]*LocaleDescriptor),
		Strings:           make(map[DescriptorIndex]*StringsDescriptor),
		StreamPortInputs:  make(map[DescriptorIndex]*StreamPortDescriptor),
		StreamPortOutputs: make(map[DescriptorIndex]*StreamPortDescriptor),
		AudioClusters:     make(map[DescriptorIndex]*AudioClusterDescriptor),
		AudioMaps:         make(map[DescriptorIndex]*AudioMapDescriptor),
		ClockDomains:      make(map[DescriptorIndex]*ClockDomainDescriptor),
	}
}

// HasDescriptor reports whether the given (type, index) exists in this configuration.
func (c *Configuration) HasDescriptor(key DescriptorKey) bool {
	switch key.Type {
	case DescriptorAudioUnit:
		_, ok := c.AudioUnits[key.Index]
		return ok
	case DescriptorStreamInput:
		_, ok := c.StreamInputs[key.Index]
		return ok
	case DescriptorStreamOutput:
		_, ok := c.StreamOutputs[key.Index]
		return ok
	case DescriptorJackInput:
		_, ok := c.JackInputs[key.Index]
		return ok
	case DescriptorJackOutput:
		_, ok := c.JackOutputs[key.Index]
		return ok
	case DescriptorAvbInterface:
		_, ok := c.AvbInterfaces[key.Index]
		return ok
	case DescriptorClockSource:
		_, ok := c.ClockSources[key.Index]
		return ok
	case DescriptorMemoryObject:
		_, ok := c.MemoryObjects[key.Index]
		return ok
	case DescriptorLocale:
		_, ok := c.Locales[key.Index]
		return ok
	case DescriptorStrings:
		_, ok := c.Strings[key.Index]
		return ok
	case DescriptorStreamPortInput:
		_, ok := c.StreamPortInputs[key.Index]
		return ok
	case DescriptorStreamPortOutput:
		_, ok := c.StreamPortOutputs[key.Index]
		return ok
	case DescriptorAudioCluster:
		_, ok := c.AudioClusters[key.Index]
		return ok
	case DescriptorAudioMap:
		_, ok := c.AudioMaps[key.Index]
		return ok
	case DescriptorClockDomain:
		_, ok := c.ClockDomains[key.Index]
		return ok
	case DescriptorConfiguration:
		return key.Index == 0
	default:
		return false
	}
}

// clone returns a shallow, independent copy of the configuration's maps
// (copy-on-write snapshot served to readers; individual descriptors are
// immutable once written so sharing the pointed-to values is safe).
func (c *Configuration) clone() *Configuration {
	out := NewConfiguration()
	out.Descriptor = c.Descriptor
	if c.Descriptor.DescriptorCounts != nil {
		out.Descriptor.DescriptorCounts = make(map[DescriptorType]uint16, len(c.Descriptor.DescriptorCounts))
		for k, v := range c.Descriptor.DescriptorCounts {
			out.Descriptor.DescriptorCounts[k] = v
		}
	}
	for k, v := range c.AudioUnits {
		out.AudioUnits[k] = v
	}
	for k, v := range c.StreamInputs {
		out.StreamInputs[k] = v
	}
	for k, v := range c.StreamOutputs {
		out.StreamOutputs[k] = v
	}
	for k, v := range c.JackInputs {
		out.JackInputs[k] = v
	}
	for k, v := range c.JackOutputs {
		out.JackOutputs[k] = v
	}
	for k, v := range c.AvbInterfaces {
		out.AvbInterfaces[k] = v
	}
	for k, v := range c.ClockSources {
		out.ClockSources[k] = v
	}
	for k, v := range c.MemoryObjects {
		out.MemoryObjects[k] = v
	}
	for k, v := range c.Locales {
		out.Locales[k] = v
	}
	for k, v := range c.Strings {
		out.Strings[k] = v
	}
	for k, v := range c.StreamPortInputs {
		out.StreamPortInputs[k] = v
	}
	for k, v := range c.StreamPortOutputs {
		out.StreamPortOutputs[k] = v
	}
	for k, v := range c.AudioClusters {
		out.AudioClusters[k] = v
	}
	for k, v := range c.AudioMaps {
		out.AudioMaps[k] = v
	}
	for k, v := range c.ClockDomains {
		out.ClockDomains[k] = v
	}
	return out
}

// EntityTree is the persistent-once-enumerated, mutated-by-confirmed-
// state-changes model of one AVDECC entity: its Identity, the static
// model (one Configuration per configuration index) and the dynamic
// model layered on top.
type EntityTree struct {
	mu sync.RWMutex

	identity EntityDescriptor

	// configurations holds the static model, one entry per configuration
	// index. Populated during enumeration; immutable per configuration
	// once enumeration of that configuration completes.
	configurations map[DescriptorIndex]*Configuration

	dynamic *DynamicState
}

// NewEntityTree creates an entity tree with the given identity and no
// configurations yet populated.
func NewEntityTree(identity EntityDescriptor) *EntityTree {
	return &EntityTree{
		identity:       identity,
		configurations: make(map[DescriptorIndex]*Configuration),
		dynamic:        NewDynamicState(),
	}
}

// Identity returns a copy of the entity's identity fields.
func (t *EntityTree) Identity() EntityDescriptor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.identity
}

// SetIdentity replaces the identity fields (e.g. after an
// AvailableIndex refresh from ADP).
func (t *EntityTree) SetIdentity(identity EntityDescriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.identity = identity
}

// SetConfiguration installs the fully-enumerated static model for one
// configuration index, replacing any previous snapshot.
func (t *EntityTree) SetConfiguration(index DescriptorIndex, cfg *Configuration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.configurations[index] = cfg
}

// Configuration returns a copy-on-write snapshot of one configuration's
// static model, safe to read without holding the tree's lock.
func (t *EntityTree) Configuration(index DescriptorIndex) (*Configuration, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cfg, ok := t.configurations[index]
	if !ok {
		return nil, ErrInvalidConfiguration
	}
	return cfg.clone(), nil
}

// ActiveConfiguration returns a snapshot of the currently active configuration.
func (t *EntityTree) ActiveConfiguration() (*Configuration, error) {
	t.mu.RLock()
	active := t.dynamic.CurrentConfiguration
	t.mu.RUnlock()
	return t.Configuration(active)
}

// HasStaticDescriptor reports whether the active configuration contains
// the given descriptor key (invariant check: every dynamic key must
// have a matching static entry).
func (t *EntityTree) HasStaticDescriptor(key DescriptorKey) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cfg, ok := t.configurations[t.dynamic.CurrentConfiguration]
	if !ok {
		return false
	}
	return cfg.HasDescriptor(key)
}

// Dynamic returns a snapshot of the dynamic model. Maps are shallow-copied
// so callers cannot mutate the tree's internal state through the snapshot.
func (t *EntityTree) Dynamic() *DynamicState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dynamic.clone()
}

// SetCurrentConfiguration sets the active configuration index.
func (t *EntityTree) SetCurrentConfiguration(index DescriptorIndex) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dynamic.CurrentConfiguration = index
}

// SetName records a name for a descriptor key in the dynamic model.
func (t *EntityTree) SetName(key DescriptorKey, name AvdeccFixedString) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dynamic.Names[key] = name
}

// Name returns the recorded name for a descriptor key, if any.
func (t *EntityTree) Name(key DescriptorKey) (AvdeccFixedString, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.dynamic.Names[key]
	return n, ok
}

// SetStreamFormat records the current format for a stream.
func (t *EntityTree) SetStreamFormat(key DescriptorKey, format uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.dynamicStream(key)
	s.CurrentFormat = format
}

// SetStreamRunning records the running status for a stream.
func (t *EntityTree) SetStreamRunning(key DescriptorKey, running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.dynamicStream(key)
	s.IsRunning = running
}

// dynamicStream returns (creating if absent) the per-stream dynamic record.
// Caller must hold t.mu.
func (t *EntityTree) dynamicStream(key DescriptorKey) *StreamDynamicState {
	s, ok := t.dynamic.Streams[key]
	if !ok {
		s = &StreamDynamicState{}
		t.dynamic.Streams[key] = s
	}
	return s
}

// StreamState returns a copy of the per-stream dynamic state, if any.
func (t *EntityTree) StreamState(key DescriptorKey) (StreamDynamicState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.dynamic.Streams[key]
	if !ok {
		return StreamDynamicState{}, false
	}
	return *s, true
}

// SetConnectionInfo records the listener-side connection state for a
// StreamInput descriptor. Passing nil clears the connection.
func (t *EntityTree) SetConnectionInfo(listenerStream DescriptorIndex, info *ConnectionInfo) {
	key := DescriptorKey{Type: DescriptorStreamInput, Index: listenerStream}
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.dynamicStream(key)
	s.ConnectionInfo = info
}

// ConnectionInfo returns the recorded connection state for a listener stream.
func (t *EntityTree) ConnectionInfo(listenerStream DescriptorIndex) *ConnectionInfo {
	key := DescriptorKey{Type: DescriptorStreamInput, Index: listenerStream}
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.dynamic.Streams[key]
	if !ok || s.ConnectionInfo == nil {
		return nil
	}
	info := *s.ConnectionInfo
	return &info
}

// SetAudioMappings replaces the audio mapping set for a stream port.
func (t *EntityTree) SetAudioMappings(portKey DescriptorKey, mappings []AudioMapping) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dynamic.StreamPorts[portKey] = &StreamPortDynamicState{Mappings: mappings}
}

// AddAudioMappings appends to the audio mapping set for a stream port
// (used while paginating GET_AUDIO_MAP responses).
func (t *EntityTree) AddAudioMappings(portKey DescriptorKey, mappings []AudioMapping) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sp, ok := t.dynamic.StreamPorts[portKey]
	if !ok {
		sp = &StreamPortDynamicState{}
		t.dynamic.StreamPorts[portKey] = sp
	}
	sp.Mappings = append(sp.Mappings, mappings...)
}

// RemoveAudioMappings deletes any mapping in the stream port's current
// set that matches one of mappings (StreamChannel/ClusterOffset/
// ClusterChannel all equal), per REMOVE_AUDIO_MAPPINGS.
func (t *EntityTree) RemoveAudioMappings(portKey DescriptorKey, mappings []AudioMapping) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sp, ok := t.dynamic.StreamPorts[portKey]
	if !ok || len(sp.Mappings) == 0 {
		return
	}
	remove := make(map[AudioMapping]bool, len(mappings))
	for _, m := range mappings {
		remove[m] = true
	}
	kept := sp.Mappings[:0]
	for _, m := range sp.Mappings {
		if !remove[m] {
			kept = append(kept, m)
		}
	}
	sp.Mappings = kept
}

// SetSamplingRate records the current sampling rate for an audio unit.
func (t *EntityTree) SetSamplingRate(audioUnit DescriptorIndex, rate uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dynamic.AudioUnits[audioUnit] = &AudioUnitDynamicState{SamplingRate: rate}
}

// SetClockSource records the selected clock source for a clock domain.
func (t *EntityTree) SetClockSource(clockDomain DescriptorIndex, sourceIndex DescriptorIndex) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dynamic.ClockDomains[clockDomain] = &ClockDomainDynamicState{ClockSourceIndex: sourceIndex}
}

// SetMemoryObjectLength records the occupied length of a memory object.
func (t *EntityTree) SetMemoryObjectLength(memoryObject DescriptorIndex, length uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dynamic.MemoryObjects[memoryObject] = &MemoryObjectDynamicState{Length: length}
}

// clone returns a shallow, independent copy of the dynamic model.
func (d *DynamicState) clone() *DynamicState {
	out := NewDynamicState()
	out.CurrentConfiguration = d.CurrentConfiguration
	for k, v := range d.Names {
		out.Names[k] = v
	}
	for k, v := range d.Streams {
		s := *v
		out.Streams[k] = &s
	}
	for k, v := range d.StreamPorts {
		sp := &StreamPortDynamicState{Mappings: append([]AudioMapping(nil), v.Mappings...)}
		out.StreamPorts[k] = sp
	}
	for k, v := range d.AudioUnits {
		au := *v
		out.AudioUnits[k] = &au
	}
	for k, v := range d.ClockDomains {
		cd := *v
		out.ClockDomains[k] = &cd
	}
	for k, v := range d.MemoryObjects {
		mo := *v
		out.MemoryObjects[k] = &mo
	}
	return out
}

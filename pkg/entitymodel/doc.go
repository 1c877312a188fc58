// Package entitymodel implements the AVDECC entity model (AEM) data
// types: the descriptor tree an AVDECC entity exposes over AECP, and
// the dynamic state layered on top of it.
//
// # Model Hierarchy
//
// An AVDECC entity exposes one or more Configurations, each a tree of
// typed, indexed descriptors:
//
//	Entity
//	└── Configuration[0..n]
//	    ├── AudioUnit[0..n]
//	    ├── StreamInput[0..n] / StreamOutput[0..n]
//	    ├── JackInput[0..n] / JackOutput[0..n]
//	    ├── AvbInterface[0..n]
//	    ├── ClockSource[0..n]
//	    ├── MemoryObject[0..n]
//	    ├── Locale[0..n] → Strings[0..n]
//	    ├── StreamPortInput[0..n] / StreamPortOutput[0..n]
//	    │   └── AudioCluster[0..n] / AudioMap[0..n]
//	    └── ClockDomain[0..n]
//
// Only one Configuration is active at a time; the active index selects
// which subtree the dynamic model below applies to.
//
// # Static vs. dynamic
//
// The static model (this package's descriptor types) is immutable once
// enumerated for a given configuration: it is topology, not state.
// The dynamic model (DynamicState) carries everything that mutates at
// runtime: names, stream formats, running status, audio mappings,
// sampling rates, clock source selection, memory object length, and
// connection state. Every dynamic key must reference a descriptor that
// exists in the static model of the currently active configuration.
//
// # Addressing
//
// Descriptors are addressed by the tuple (DescriptorType, DescriptorIndex),
// unique within a configuration.
package entitymodel

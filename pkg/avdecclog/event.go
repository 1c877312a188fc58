package avdecclog

import (
	"time"

	"github.com/google/uuid"
)

// Level is the severity of a logged event.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
)

// String returns the level mnemonic.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// Layer identifies which subsystem emitted an event.
type Layer uint8

const (
	LayerGeneric Layer = iota
	LayerSerialization
	LayerProtocolInterface
	LayerAemPayload
	LayerEntity
	LayerControllerEntity
	LayerControllerStateMachine
	LayerJsonSerializer
)

// String returns the layer mnemonic.
func (l Layer) String() string {
	switch l {
	case LayerGeneric:
		return "Generic"
	case LayerSerialization:
		return "Serialization"
	case LayerProtocolInterface:
		return "ProtocolInterface"
	case LayerAemPayload:
		return "AemPayload"
	case LayerEntity:
		return "Entity"
	case LayerControllerEntity:
		return "ControllerEntity"
	case LayerControllerStateMachine:
		return "ControllerStateMachine"
	case LayerJsonSerializer:
		return "JsonSerializer"
	default:
		return "Unknown"
	}
}

// Reserved layer names are reported by IsReservedLayerName (they name
// roles, not subsystems, and would collide with future wire-level use).
var reservedLayerNames = map[string]bool{
	"Protocol":   true,
	"Controller": true,
	"Talker":     true,
	"Listener":   true,
}

// IsReservedLayerName reports whether name is reserved and cannot be
// registered as a custom layer label.
func IsReservedLayerName(name string) bool {
	return reservedLayerNames[name]
}

// Event is one logged occurrence. EntityID/CommandID are zero-valued
// when not applicable to the event being logged.
type Event struct {
	Timestamp time.Time
	Level     Level
	Layer     Layer
	Message   string

	// CorrelationID ties related events together. Stamped with a fresh
	// UUID when the caller has no connection/command context ID handy
	// (e.g. controller-lifecycle events), otherwise caller-supplied.
	CorrelationID string

	// EntityID is the entity this event concerns, if any, rendered as
	// its EUI-64 hex string (avoids an import cycle on entitymodel).
	EntityID string
}

// NewEvent builds an Event at the given level/layer, stamping a fresh
// correlation ID if corrID is empty.
func NewEvent(level Level, layer Layer, corrID, entityID, message string) Event {
	if corrID == "" {
		corrID = uuid.NewString()
	}
	return Event{
		Timestamp:     time.Now(),
		Level:         level,
		Layer:         layer,
		Message:       message,
		CorrelationID: corrID,
		EntityID:      entityID,
	}
}

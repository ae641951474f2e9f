package ipc

// Request message types. The numeric value doubles as the index into the
// dispatch table; replies reuse the same code.
const (
	MessageCommand uint32 = iota
	MessageGetWorkspaces
	MessageSubscribe
	MessageGetOutputs
	MessageGetTree
	MessageGetMarks
	MessageGetBarConfig
	MessageGetVersion

	messageTypeCount
)

// EventMask marks a message type as an unsolicited event. Event codes
// never collide with request/reply codes.
const EventMask uint32 = 1 << 31

// Event message types.
const (
	EventWorkspace       = EventMask | 0
	EventOutput          = EventMask | 1
	EventMode            = EventMask | 2
	EventWindow          = EventMask | 3
	EventBarConfigUpdate = EventMask | 4
)

// eventTypes maps subscription names to event message types. Matching is
// case-insensitive at publish time.
var eventTypes = map[string]uint32{
	"workspace":        EventWorkspace,
	"output":           EventOutput,
	"mode":             EventMode,
	"window":           EventWindow,
	"barconfig_update": EventBarConfigUpdate,
}

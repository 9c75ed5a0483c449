package application

import "github.com/ledgist/hivewallet/internal/domain"

type EventType string

const (
	EventConnecting   EventType = "connecting"
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventError        EventType = "error"
	EventBroadcast    EventType = "broadcast"
)

// Event is what the presentation layer consumes from the subscription
// channel: every session transition plus signing outcomes, with a message
// ready to show. Expected marks anticipated user decisions (declined
// prompts) so the UI does not alarm-escalate them.
type Event struct {
	Type     EventType
	Identity string
	Kind     domain.FailureKind
	Message  string
	Expected bool
}

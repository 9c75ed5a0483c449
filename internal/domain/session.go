package domain

type SessionStatus string

const (
	StatusDisconnected SessionStatus = "disconnected"
	StatusConnecting   SessionStatus = "connecting"
	StatusConnected    SessionStatus = "connected"
	StatusError        SessionStatus = "error"
)

// SessionState is the wallet session snapshot handed to readers. Invariant:
// Identity is non-nil exactly when Status is StatusConnected.
type SessionState struct {
	Status       SessionStatus
	Identity     *Account
	LastError    string
	AgentPresent bool
}

// Consistent reports whether the identity/status invariant holds.
func (s SessionState) Consistent() bool {
	if s.Status == StatusConnected {
		return s.Identity != nil
	}
	return s.Identity == nil
}

package domain

import "errors"

var (
	ErrAgentNotInstalled     = errors.New("key-custody agent not installed")
	ErrAgentLocked           = errors.New("key-custody agent is locked")
	ErrIdentityRequired      = errors.New("an identity name is required")
	ErrInvalidIdentityFormat = errors.New("invalid identity name")
	ErrAccountNotFound       = errors.New("account not found on ledger")
	ErrNetworkFailure        = errors.New("ledger request failed")
	ErrUserRejected          = errors.New("request rejected by user")
	ErrAuthTimeout           = errors.New("timed out waiting for challenge signature")
	ErrMalformedProof        = errors.New("malformed proof from agent")
	ErrNotConnected          = errors.New("no active wallet session")
	ErrBroadcastFailed       = errors.New("broadcast rejected")
	ErrConnectInProgress     = errors.New("a connect attempt is already in flight")
)

// FailureKind buckets an error into the user-facing taxonomy. The order of
// checks matters: a broadcast failure wraps the underlying agent error and
// must win over it.
type FailureKind string

const (
	KindAgentNotInstalled    FailureKind = "agent_not_installed"
	KindInvalidIdentity      FailureKind = "invalid_identity_format"
	KindIdentityNotFound     FailureKind = "identity_not_found"
	KindNetworkFailure       FailureKind = "network_failure"
	KindAuthenticationFailed FailureKind = "authentication_failed"
	KindNotConnected         FailureKind = "not_connected"
	KindBroadcastFailed      FailureKind = "broadcast_failed"
	KindUnknown              FailureKind = "unknown"
)

func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrBroadcastFailed):
		return KindBroadcastFailed
	case errors.Is(err, ErrAgentNotInstalled):
		return KindAgentNotInstalled
	case errors.Is(err, ErrInvalidIdentityFormat), errors.Is(err, ErrIdentityRequired):
		return KindInvalidIdentity
	case errors.Is(err, ErrAccountNotFound):
		return KindIdentityNotFound
	case errors.Is(err, ErrNetworkFailure):
		return KindNetworkFailure
	case errors.Is(err, ErrUserRejected), errors.Is(err, ErrAuthTimeout),
		errors.Is(err, ErrAgentLocked), errors.Is(err, ErrMalformedProof):
		return KindAuthenticationFailed
	case errors.Is(err, ErrNotConnected):
		return KindNotConnected
	default:
		return KindUnknown
	}
}

// Message is the human-readable string the notification channel carries for
// each failure kind.
func (k FailureKind) Message() string {
	switch k {
	case KindAgentNotInstalled:
		return "No key-custody agent detected. Install and unlock a signer to connect."
	case KindInvalidIdentity:
		return "That account name is not valid on this ledger."
	case KindIdentityNotFound:
		return "No such account exists on the ledger."
	case KindNetworkFailure:
		return "Could not reach the ledger. Check your connection and retry."
	case KindAuthenticationFailed:
		return "The signing agent did not authorize this session."
	case KindNotConnected:
		return "Connect a wallet session before signing."
	case KindBroadcastFailed:
		return "The transaction was rejected."
	default:
		return "Something went wrong."
	}
}

// Expected reports whether err is an anticipated user decision (such as
// declining a signature prompt) rather than a fault worth alarming on.
func Expected(err error) bool {
	return errors.Is(err, ErrUserRejected)
}

package application

import "github.com/ledgist/hivewallet/internal/domain"

// Session transitions are expressed as a pure reducer so every reachable
// state is enumerable and testable without wiring adapters. Only the
// session manager's dispatch path applies actions; everything else reads
// snapshots.

type actionKind int

const (
	actionConnectStarted actionKind = iota
	actionConnectFailed
	actionSettled
	actionConnected
	actionDisconnected
	actionAgentPresence
)

type action struct {
	kind     actionKind
	identity *domain.Account
	errMsg   string
	present  bool
}

func reduce(state domain.SessionState, act action) domain.SessionState {
	switch act.kind {
	case actionConnectStarted:
		state.Status = domain.StatusConnecting
		state.Identity = nil
		state.LastError = ""
	case actionConnectFailed:
		state.Status = domain.StatusError
		state.Identity = nil
		state.LastError = act.errMsg
	case actionSettled:
		// A failed connect never leaves the session stuck: Error settles to
		// Disconnected, keeping LastError visible.
		if state.Status == domain.StatusError {
			state.Status = domain.StatusDisconnected
		}
	case actionConnected:
		state.Status = domain.StatusConnected
		state.Identity = act.identity
		state.LastError = ""
	case actionDisconnected:
		state.Status = domain.StatusDisconnected
		state.Identity = nil
	case actionAgentPresence:
		state.AgentPresent = act.present
	}

	return state
}

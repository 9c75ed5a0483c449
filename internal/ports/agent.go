package ports

import (
	"context"

	"github.com/ledgist/hivewallet/internal/domain"
)

// CustodyAgent is the only boundary to the out-of-process signer. Every
// other component depends on this interface, never on the agent transport,
// so a test double can stand in for the daemon. The agent holds all private
// keys; implementations must never expose key material to callers.
type CustodyAgent interface {
	// Present probes whether a signer is reachable right now. It never
	// returns an error: unreachable means absent.
	Present(ctx context.Context) bool

	// ListIdentities enumerates the account names the agent can sign for.
	ListIdentities(ctx context.Context) ([]string, error)

	// SignChallenge asks the agent to sign a single-use authentication
	// message at the given authority level. Rejections surface as
	// domain.ErrUserRejected, a locked signer as domain.ErrAgentLocked.
	SignChallenge(ctx context.Context, identity, message string, authority domain.AuthorityLevel) (domain.Proof, error)

	// Broadcast signs and submits operations as one atomic call and returns
	// the ledger receipt.
	Broadcast(ctx context.Context, identity string, ops []domain.Operation, authority domain.AuthorityLevel) (domain.Receipt, error)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ledgist/hivewallet/internal/domain"
	"github.com/ledgist/hivewallet/internal/metrics"
	"github.com/ledgist/hivewallet/internal/ports"
)

// Broadcaster validates that a session is active, hands operations to the
// agent for signing and submission as one atomic call, and invalidates the
// signer's cached account data on success. It never retries a broadcast and
// never mutates session state: a failed transaction must not disconnect the
// session.
type Broadcaster struct {
	agent    ports.CustodyAgent
	sessions *SessionManager
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewBroadcaster(agent ports.CustodyAgent, sessions *SessionManager, m *metrics.Metrics, log *slog.Logger) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}

	return &Broadcaster{agent: agent, sessions: sessions, metrics: m, log: log}
}

func (b *Broadcaster) SignAndBroadcast(ctx context.Context, ops []domain.Operation, authority domain.AuthorityLevel) (domain.Receipt, error) {
	if len(ops) == 0 {
		return domain.Receipt{}, errors.New("no operations to broadcast")
	}
	if !authority.Valid() {
		return domain.Receipt{}, fmt.Errorf("invalid authority level %q", authority)
	}

	st := b.sessions.State()
	if st.Status != domain.StatusConnected {
		// Usage error; no agent call is made.
		return domain.Receipt{}, domain.ErrNotConnected
	}
	identity := st.Identity.Name

	for _, op := range ops {
		if !authority.Covers(op.RequiredAuthority()) {
			return domain.Receipt{}, fmt.Errorf("operation %q requires %s authority, signing with %s", op.OperationName(), op.RequiredAuthority(), authority)
		}
	}

	// The agent can be uninstalled or stopped mid-session.
	if !b.agent.Present(ctx) {
		b.sessions.setAgentPresence(false)
		return domain.Receipt{}, domain.ErrAgentNotInstalled
	}

	receipt, err := b.agent.Broadcast(ctx, identity, ops, authority)
	if err != nil {
		b.metrics.Broadcast("error")
		wrapped := fmt.Errorf("broadcast %d operation(s) for %q: %w", len(ops), identity, errors.Join(domain.ErrBroadcastFailed, err))
		b.sessions.publish(Event{
			Type:     EventError,
			Identity: identity,
			Kind:     domain.KindBroadcastFailed,
			Message:  domain.KindBroadcastFailed.Message(),
			Expected: domain.Expected(err),
		})
		return domain.Receipt{}, wrapped
	}

	b.metrics.Broadcast("ok")
	// Balances changed; the next read reloads synchronously.
	b.sessions.accounts.Invalidate(accountKey(identity))
	b.sessions.publish(Event{
		Type:     EventBroadcast,
		Identity: identity,
		Message:  "Transaction " + receipt.TransactionID + " broadcast",
	})

	return receipt, nil
}

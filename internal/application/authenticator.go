package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ledgist/hivewallet/internal/domain"
	"github.com/ledgist/hivewallet/internal/ports"
)

// DefaultChallengeTimeout bounds how long a connect attempt waits for the
// user to approve the signing prompt.
const DefaultChallengeTimeout = 30 * time.Second

const challengePrefix = "hivewallet-login"

// IdentityProver proves control of an identity during connect. The
// challenge-response Authenticator is the default implementation; the OAuth
// signer-service flow satisfies the same contract for the alternate login
// path.
type IdentityProver interface {
	Authenticate(ctx context.Context, name string, authority domain.AuthorityLevel) (domain.Proof, error)
}

// Authenticator performs challenge-response authentication: it builds a
// single-use message carrying a monotonic nonce and a wall-clock timestamp,
// has the agent sign it, and races the reply against a fixed timeout.
type Authenticator struct {
	agent   ports.CustodyAgent
	timeout time.Duration
	clock   ports.Clock
}

var _ IdentityProver = (*Authenticator)(nil)

func NewAuthenticator(agent ports.CustodyAgent, timeout time.Duration, clock ports.Clock) *Authenticator {
	if timeout <= 0 {
		timeout = DefaultChallengeTimeout
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Authenticator{agent: agent, timeout: timeout, clock: clock}
}

// Authenticate returns the signed proof, domain.ErrUserRejected,
// domain.ErrAuthTimeout, or domain.ErrMalformedProof. Expected outcomes are
// values, never panics; only a bogus authority level is treated as a
// programmer error.
func (a *Authenticator) Authenticate(ctx context.Context, name string, authority domain.AuthorityLevel) (domain.Proof, error) {
	if !authority.Valid() {
		return domain.Proof{}, fmt.Errorf("invalid authority level %q", authority)
	}

	challenge := fmt.Sprintf("%s:%s:%s:%s",
		challengePrefix, name, ulid.Make(), a.clock.Now().UTC().Format(time.RFC3339))

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type signResult struct {
		proof domain.Proof
		err   error
	}
	resultCh := make(chan signResult, 1)
	go func() {
		proof, err := a.agent.SignChallenge(ctx, name, challenge, authority)
		resultCh <- signResult{proof: proof, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Proof{}, domain.ErrAuthTimeout
		}
		return domain.Proof{}, ctx.Err()
	case result := <-resultCh:
		if result.err != nil {
			if errors.Is(result.err, domain.ErrUserRejected) || errors.Is(result.err, domain.ErrAgentLocked) {
				return domain.Proof{}, result.err
			}
			return domain.Proof{}, fmt.Errorf("sign challenge: %w", result.err)
		}
		if result.proof.Signature == "" || result.proof.Challenge != challenge {
			return domain.Proof{}, domain.ErrMalformedProof
		}
		return result.proof, nil
	}
}

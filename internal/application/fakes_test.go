package application

import (
	"context"
	"sync"
	"time"

	"github.com/ledgist/hivewallet/internal/domain"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// fakeAgent is a scriptable ports.CustodyAgent.
type fakeAgent struct {
	mu         sync.Mutex
	present    bool
	identities []string
	signErr    error
	signDelay  time.Duration
	signCalls  int
	malformed  bool

	broadcastErr   error
	broadcastCalls int
	receipt        domain.Receipt
}

func (a *fakeAgent) Present(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.present
}

func (a *fakeAgent) setPresent(present bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.present = present
}

func (a *fakeAgent) ListIdentities(ctx context.Context) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identities, nil
}

func (a *fakeAgent) SignChallenge(ctx context.Context, identity, message string, authority domain.AuthorityLevel) (domain.Proof, error) {
	a.mu.Lock()
	a.signCalls++
	delay := a.signDelay
	signErr := a.signErr
	malformed := a.malformed
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return domain.Proof{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if signErr != nil {
		return domain.Proof{}, signErr
	}
	if malformed {
		return domain.Proof{}, nil
	}

	return domain.Proof{Challenge: message, Signature: "sig-" + identity, PublicKey: "STM-test"}, nil
}

func (a *fakeAgent) Broadcast(ctx context.Context, identity string, ops []domain.Operation, authority domain.AuthorityLevel) (domain.Receipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.broadcastCalls++
	if a.broadcastErr != nil {
		return domain.Receipt{}, a.broadcastErr
	}
	if a.receipt.TransactionID == "" {
		return domain.Receipt{TransactionID: "tx-1"}, nil
	}
	return a.receipt, nil
}

// fakeResolver serves accounts from a map; unknown names are not-found.
type fakeResolver struct {
	mu           sync.Mutex
	accounts     map[string]domain.Account
	transportErr error
	calls        int
	block        chan struct{}
}

func (r *fakeResolver) Resolve(ctx context.Context, name string) (domain.Account, error) {
	r.mu.Lock()
	r.calls++
	block := r.block
	transportErr := r.transportErr
	account, ok := r.accounts[name]
	r.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return domain.Account{}, ctx.Err()
		case <-block:
		}
	}
	if transportErr != nil {
		return domain.Account{}, transportErr
	}
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

// memoryPointerStore is an in-memory ports.SessionPointerStore.
type memoryPointerStore struct {
	mu     sync.Mutex
	name   string
	saves  int
	clears int
}

func (s *memoryPointerStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name, nil
}

func (s *memoryPointerStore) Save(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.saves++
	return nil
}

func (s *memoryPointerStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = ""
	s.clears++
	return nil
}

func (s *memoryPointerStore) stored() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *memoryPointerStore) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgist/hivewallet/internal/cache"
	"github.com/ledgist/hivewallet/internal/domain"
)

type managerFixture struct {
	manager  *SessionManager
	agent    *fakeAgent
	resolver *fakeResolver
	store    *memoryPointerStore
	accounts *cache.Cache[domain.Account]
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	agent := &fakeAgent{present: true}
	resolver := &fakeResolver{accounts: map[string]domain.Account{
		"alice": {Name: "alice", Balance: domain.Asset{Amount: "10.000", Symbol: "HIVE"}},
		"carol": {Name: "carol", Balance: domain.Asset{Amount: "1.000", Symbol: "HIVE"}},
	}}
	store := &memoryPointerStore{}
	accounts := cache.New[domain.Account](time.Minute, nil, nil, nil)

	authenticator := NewAuthenticator(agent, time.Second, nil)
	manager := NewSessionManager(agent, resolver, authenticator, store, accounts, nil, nil, nil)

	return &managerFixture{
		manager:  manager,
		agent:    agent,
		resolver: resolver,
		store:    store,
		accounts: accounts,
	}
}

func TestConnectAgentAbsent(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	f.agent.setPresent(false)

	err := f.manager.Connect(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrAgentNotInstalled)

	state := f.manager.State()
	assert.Equal(t, domain.StatusDisconnected, state.Status)
	assert.True(t, state.Consistent())
	assert.False(t, state.AgentPresent)

	f.resolver.mu.Lock()
	defer f.resolver.mu.Unlock()
	assert.Zero(t, f.resolver.calls, "agent absence must fail before any network call")
}

func TestConnectIdentityNotFound(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)

	err := f.manager.Connect(context.Background(), "bobby")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Equal(t, domain.KindIdentityNotFound, domain.KindOf(err))

	state := f.manager.State()
	assert.Equal(t, domain.StatusDisconnected, state.Status)
	assert.NotEmpty(t, state.LastError)
}

func TestConnectNetworkFailure(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	f.resolver.transportErr = domain.ErrNetworkFailure

	err := f.manager.Connect(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
	assert.Equal(t, domain.StatusDisconnected, f.manager.State().Status)
}

func TestConnectAuthTimeoutLeavesPointerUntouched(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	f.agent.signDelay = time.Minute

	err := f.manager.Connect(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrAuthTimeout)

	state := f.manager.State()
	assert.Equal(t, domain.StatusDisconnected, state.Status)
	assert.True(t, state.Consistent())
	assert.Empty(t, f.store.stored())
	assert.Zero(t, f.store.clearCount(), "a failed interactive connect must not clear the pointer")
}

func TestConnectAuthRejectedIsExpected(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	f.agent.signErr = domain.ErrUserRejected
	events := f.manager.Subscribe()

	err := f.manager.Connect(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrUserRejected)

	var errorEvent Event
	for ev := range events {
		if ev.Type == EventError {
			errorEvent = ev
			break
		}
	}
	assert.Equal(t, domain.KindAuthenticationFailed, errorEvent.Kind)
	assert.True(t, errorEvent.Expected, "a declined prompt must not alarm-escalate")
}

func TestConnectSuccess(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	events := f.manager.Subscribe()

	err := f.manager.Connect(context.Background(), "carol")
	require.NoError(t, err)

	state := f.manager.State()
	require.Equal(t, domain.StatusConnected, state.Status)
	require.NotNil(t, state.Identity)
	assert.Equal(t, "carol", state.Identity.Name)
	assert.True(t, state.Consistent())
	assert.Equal(t, "carol", f.store.stored())

	assert.Equal(t, EventConnecting, (<-events).Type)
	connected := <-events
	assert.Equal(t, EventConnected, connected.Type)
	assert.Equal(t, "carol", connected.Identity)
}

func TestConnectEmptyNameUsesAgentIdentities(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	f.agent.identities = []string{"Bad Name", "carol"}

	err := f.manager.Connect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "carol", f.manager.State().Identity.Name)
}

func TestConnectEmptyNameNoIdentities(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)

	err := f.manager.Connect(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrIdentityRequired)
	assert.Equal(t, domain.StatusDisconnected, f.manager.State().Status)
}

func TestConnectValidationBoundedToThreePasses(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	// The valid candidate sits beyond the validation bound.
	f.agent.identities = []string{"A", "B", "C", "carol"}

	err := f.manager.Connect(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentityFormat)
}

func TestConnectMutualExclusion(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	f.resolver.block = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- f.manager.Connect(context.Background(), "alice")
	}()

	require.Eventually(t, func() bool {
		return f.manager.State().Status == domain.StatusConnecting
	}, 2*time.Second, 5*time.Millisecond)

	err := f.manager.Connect(context.Background(), "carol")
	assert.ErrorIs(t, err, domain.ErrConnectInProgress, "the second connect observes an immediate rejection")

	close(f.resolver.block)
	require.NoError(t, <-firstDone)
	assert.Equal(t, "alice", f.manager.State().Identity.Name, "only the first connect ran to completion")
}

func TestDisconnectIdempotent(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	require.NoError(t, f.manager.Connect(context.Background(), "alice"))

	require.NoError(t, f.manager.Disconnect(context.Background()))
	first := f.manager.State()

	require.NoError(t, f.manager.Disconnect(context.Background()))
	second := f.manager.State()

	assert.Equal(t, first, second)
	assert.Equal(t, domain.StatusDisconnected, second.Status)
	assert.Empty(t, f.store.stored())
	assert.Equal(t, 2, f.store.clearCount(), "each disconnect clears the pointer without error")
}

func TestDisconnectDiscardsInFlightConnect(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	f.resolver.block = make(chan struct{})

	connectDone := make(chan error, 1)
	go func() {
		connectDone <- f.manager.Connect(context.Background(), "alice")
	}()

	require.Eventually(t, func() bool {
		return f.manager.State().Status == domain.StatusConnecting
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.manager.Disconnect(context.Background()))
	close(f.resolver.block)

	err := <-connectDone
	assert.Error(t, err, "the raced connect must not report success")

	state := f.manager.State()
	assert.Equal(t, domain.StatusDisconnected, state.Status)
	assert.Nil(t, state.Identity, "the stale completion was discarded")
}

func TestReconnectLastSuccess(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	require.NoError(t, f.store.Save(context.Background(), "alice"))

	require.NoError(t, f.manager.ReconnectLast(context.Background()))
	assert.Equal(t, "alice", f.manager.State().Identity.Name)

	// Exactly once per process: later calls are no-ops even after the
	// session changes.
	require.NoError(t, f.manager.Disconnect(context.Background()))
	require.NoError(t, f.manager.ReconnectLast(context.Background()))
	assert.Equal(t, domain.StatusDisconnected, f.manager.State().Status)
}

func TestReconnectLastFailureClearsPointer(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	require.NoError(t, f.store.Save(context.Background(), "ghost"))

	err := f.manager.ReconnectLast(context.Background())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Empty(t, f.store.stored(), "a failed auto-reconnect clears the pointer instead of looping")
}

func TestReconnectLastNoPointer(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	require.NoError(t, f.manager.ReconnectLast(context.Background()))
	assert.Equal(t, domain.StatusDisconnected, f.manager.State().Status)
}

func TestRefreshRequiresConnection(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	_, err := f.manager.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestRefreshReadsThroughCache(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	require.NoError(t, f.manager.Connect(context.Background(), "alice"))

	f.resolver.mu.Lock()
	callsAfterConnect := f.resolver.calls
	f.resolver.mu.Unlock()

	account, err := f.manager.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Name)

	f.resolver.mu.Lock()
	defer f.resolver.mu.Unlock()
	assert.Equal(t, callsAfterConnect, f.resolver.calls, "connect primes the cache, so a fresh read does not hit the ledger")
}

func TestStateReturnsSnapshot(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	require.NoError(t, f.manager.Connect(context.Background(), "alice"))

	snapshot := f.manager.State()
	snapshot.Identity.Name = "mallory"

	assert.Equal(t, "alice", f.manager.State().Identity.Name, "mutating a snapshot must not reach the session")
}

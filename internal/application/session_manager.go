package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ledgist/hivewallet/internal/cache"
	"github.com/ledgist/hivewallet/internal/domain"
	"github.com/ledgist/hivewallet/internal/metrics"
	"github.com/ledgist/hivewallet/internal/ports"
)

// A connect attempt makes at most this many validation passes over
// candidate identity names before giving up on the input.
const maxValidationPasses = 3

// errSuperseded marks a connect completion that lost a race with an
// explicit disconnect; its result is discarded.
var errSuperseded = errors.New("connect attempt superseded")

// SessionManager owns the wallet session. All state changes go through the
// reducer under a single-writer mutex; readers get value snapshots, and
// subscribers get an event per transition. At most one connect attempt is
// in flight at any time.
type SessionManager struct {
	agent    ports.CustodyAgent
	resolver ports.AccountResolver
	prover   IdentityProver
	store    ports.SessionPointerStore
	accounts *cache.Cache[domain.Account]
	clock    ports.Clock
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	state      domain.SessionState
	generation uint64
	connecting bool

	reconnectOnce sync.Once

	subsMu sync.Mutex
	subs   []chan Event
}

func NewSessionManager(
	agent ports.CustodyAgent,
	resolver ports.AccountResolver,
	prover IdentityProver,
	store ports.SessionPointerStore,
	accounts *cache.Cache[domain.Account],
	clock ports.Clock,
	log *slog.Logger,
	m *metrics.Metrics,
) *SessionManager {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &SessionManager{
		agent:    agent,
		resolver: resolver,
		prover:   prover,
		store:    store,
		accounts: accounts,
		clock:    clock,
		log:      log,
		metrics:  m,
		state:    domain.SessionState{Status: domain.StatusDisconnected},
	}
}

// Connect establishes a session for name. An empty name asks the agent to
// enumerate identities. Re-entrant calls while a connect is in flight get
// domain.ErrConnectInProgress without touching the attempt. Errors are
// terminal for the attempt: the session lands in Disconnected with the
// failure recorded, never stuck in Connecting.
func (m *SessionManager) Connect(ctx context.Context, name string) error {
	m.mu.Lock()
	if m.connecting {
		m.mu.Unlock()
		return domain.ErrConnectInProgress
	}
	m.connecting = true
	m.generation++
	gen := m.generation
	m.state = reduce(m.state, action{kind: actionConnectStarted})
	m.mu.Unlock()

	m.publish(Event{Type: EventConnecting, Identity: name})

	started := m.clock.Now()
	err := m.runConnect(ctx, gen, name)
	switch {
	case err == nil:
		m.metrics.ConnectAttempt("ok", m.clock.Now().Sub(started).Seconds())
	case errors.Is(err, errSuperseded):
		// Disconnect raced in; the session already settled.
	default:
		m.failConnect(gen, err)
		m.metrics.ConnectAttempt(string(domain.KindOf(err)), m.clock.Now().Sub(started).Seconds())
	}

	return err
}

func (m *SessionManager) runConnect(ctx context.Context, gen uint64, name string) error {
	present := m.agent.Present(ctx)
	m.setAgentPresence(present)
	if !present {
		// Fail before any network call is made.
		return domain.ErrAgentNotInstalled
	}

	name, err := m.chooseIdentity(ctx, name)
	if err != nil {
		return err
	}

	account, err := m.resolver.Resolve(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrNetworkFailure) {
			return err
		}
		return fmt.Errorf("resolve account %q: %w", name, errors.Join(domain.ErrNetworkFailure, err))
	}

	// Lowest privilege sufficient to prove control.
	if _, err := m.prover.Authenticate(ctx, name, domain.AuthorityPosting); err != nil {
		return err
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		m.log.Debug("discarding stale connect completion", "identity", name)
		return errSuperseded
	}
	snapshot := account
	m.state = reduce(m.state, action{kind: actionConnected, identity: &snapshot})
	m.connecting = false
	m.mu.Unlock()

	if err := m.store.Save(ctx, name); err != nil {
		// The session itself is fine; only auto-reconnect loses out.
		m.log.Warn("persist session pointer", "identity", name, "error", err)
	}
	m.accounts.Prime(accountKey(name), account, m.accountLoader(name))
	m.publish(Event{Type: EventConnected, Identity: name, Message: "Connected as @" + name})

	return nil
}

// chooseIdentity settles on the name to connect as: the supplied one, or
// the agent's first enumerated identity that passes name validation.
func (m *SessionManager) chooseIdentity(ctx context.Context, name string) (string, error) {
	candidates := []string{name}
	if name == "" {
		listed, err := m.agent.ListIdentities(ctx)
		if err != nil {
			return "", fmt.Errorf("list agent identities: %w", err)
		}
		if len(listed) == 0 {
			// Soliciting a name is the caller's job; the session stays down.
			return "", domain.ErrIdentityRequired
		}
		candidates = listed
	}

	var lastErr error
	for i, candidate := range candidates {
		if i == maxValidationPasses {
			break
		}
		if err := domain.ValidateAccountName(candidate); err != nil {
			lastErr = err
			continue
		}
		return candidate, nil
	}

	return "", lastErr
}

func (m *SessionManager) failConnect(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.state = reduce(m.state, action{kind: actionConnectFailed, errMsg: err.Error()})
	m.state = reduce(m.state, action{kind: actionSettled})
	m.connecting = false
	m.mu.Unlock()

	kind := domain.KindOf(err)
	m.publish(Event{Type: EventError, Kind: kind, Message: kind.Message(), Expected: domain.Expected(err)})
}

// Disconnect tears the session down unconditionally and is idempotent. An
// in-flight connect is not aborted, but its eventual completion is
// discarded via the generation counter.
func (m *SessionManager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	var name string
	if m.state.Identity != nil {
		name = m.state.Identity.Name
	}
	m.state = reduce(m.state, action{kind: actionDisconnected})
	m.generation++
	m.connecting = false
	m.mu.Unlock()

	if name != "" {
		m.accounts.Evict(accountKey(name))
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session pointer: %w", err)
	}
	m.publish(Event{Type: EventDisconnected, Message: "Disconnected"})

	return nil
}

// ReconnectLast runs the startup auto-reconnect: if the agent is present
// and a session pointer survives from a previous run, it tries Connect
// exactly once and clears the pointer on failure rather than looping. Later
// calls in the same process are no-ops.
func (m *SessionManager) ReconnectLast(ctx context.Context) error {
	var err error
	m.reconnectOnce.Do(func() { err = m.reconnectLast(ctx) })
	return err
}

func (m *SessionManager) reconnectLast(ctx context.Context) error {
	if !m.agent.Present(ctx) {
		m.setAgentPresence(false)
		return nil
	}

	name, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session pointer: %w", err)
	}
	if name == "" {
		return nil
	}

	if err := m.Connect(ctx, name); err != nil {
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.log.Warn("clear session pointer after failed reconnect", "error", clearErr)
		}
		return err
	}

	return nil
}

// Refresh re-reads the connected identity's account through the cache and
// folds the fresh snapshot into the session.
func (m *SessionManager) Refresh(ctx context.Context) (domain.Account, error) {
	st := m.State()
	if st.Status != domain.StatusConnected {
		return domain.Account{}, domain.ErrNotConnected
	}
	name := st.Identity.Name

	account, err := m.accounts.Get(ctx, accountKey(name), m.accountLoader(name))
	if err != nil {
		return domain.Account{}, fmt.Errorf("refresh account %q: %w", name, err)
	}

	m.mu.Lock()
	if m.state.Status == domain.StatusConnected && m.state.Identity != nil && m.state.Identity.Name == name {
		snapshot := account
		m.state = reduce(m.state, action{kind: actionConnected, identity: &snapshot})
	}
	m.mu.Unlock()

	return account, nil
}

// State returns a value snapshot; the identity is copied so callers can
// never reach the manager's own record.
func (m *SessionManager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state
	if st.Identity != nil {
		snapshot := *st.Identity
		st.Identity = &snapshot
	}
	return st
}

// Subscribe returns a channel of session events. Slow consumers drop
// events rather than blocking the dispatch path.
func (m *SessionManager) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

func (m *SessionManager) publish(ev Event) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (m *SessionManager) setAgentPresence(present bool) {
	m.mu.Lock()
	m.state = reduce(m.state, action{kind: actionAgentPresence, present: present})
	m.mu.Unlock()
}

func (m *SessionManager) accountLoader(name string) cache.Loader[domain.Account] {
	return func(ctx context.Context) (domain.Account, error) {
		return m.resolver.Resolve(ctx, name)
	}
}

func accountKey(name string) string { return "account:" + name }

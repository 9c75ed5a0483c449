package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	agentws "github.com/ledgist/hivewallet/internal/adapters/agent/ws"
	authadapter "github.com/ledgist/hivewallet/internal/adapters/auth"
	ledgerrpc "github.com/ledgist/hivewallet/internal/adapters/ledger/rpc"
	tomlrepo "github.com/ledgist/hivewallet/internal/adapters/repo/toml"
	"github.com/ledgist/hivewallet/internal/application"
	"github.com/ledgist/hivewallet/internal/cache"
	"github.com/ledgist/hivewallet/internal/domain"
	"github.com/ledgist/hivewallet/internal/logging"
	"github.com/ledgist/hivewallet/internal/metrics"
	"github.com/ledgist/hivewallet/internal/ports"
)

type app struct {
	sessions    *application.SessionManager
	broadcaster *application.Broadcaster
	agent       ports.CustodyAgent
	resolver    ports.AccountResolver
	store       ports.SessionPointerStore
	accounts    *cache.Cache[domain.Account]
	metrics     *metrics.Metrics
	log         *slog.Logger
	signerLogin signerLoginConfig
}

type signerLoginConfig struct {
	Issuer     string
	ClientID   string
	ListenAddr string
	Timeout    time.Duration
}

func wireApp() (*app, error) {
	cfg := viper.New()
	cfg.SetDefault("node.url", "https://api.hive.blog")
	cfg.SetDefault("agent.url", "ws://127.0.0.1:9377/agent")
	cfg.SetDefault("cache.account_ttl", "3m")
	cfg.SetDefault("log.level", "warn")
	cfg.SetDefault("signer.issuer", "https://hivesigner.com")
	cfg.SetDefault("signer.client_id", "hivewallet")
	cfg.SetDefault("signer.listen", "127.0.0.1:1466")

	store, err := tomlrepo.NewSessionStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire session store: %w", err)
	}

	log := logging.New(os.Stderr, cfg.GetString("log.level"))
	m := metrics.New(prometheus.NewRegistry())

	agent := agentws.NewClient(cfg.GetString("agent.url"), log)
	resolver := ledgerrpc.NewClient(cfg.GetString("node.url"))
	accounts := cache.New[domain.Account](cfg.GetDuration("cache.account_ttl"), ports.SystemClock{}, log, m)

	authenticator := application.NewAuthenticator(agent, application.DefaultChallengeTimeout, nil)
	sessions := application.NewSessionManager(agent, resolver, authenticator, store, accounts, nil, log, m)

	return &app{
		sessions:    sessions,
		broadcaster: application.NewBroadcaster(agent, sessions, m, log),
		agent:       agent,
		resolver:    resolver,
		store:       store,
		accounts:    accounts,
		metrics:     m,
		log:         log,
		signerLogin: signerLoginConfig{
			Issuer:     cfg.GetString("signer.issuer"),
			ClientID:   cfg.GetString("signer.client_id"),
			ListenAddr: cfg.GetString("signer.listen"),
			Timeout:    5 * time.Minute,
		},
	}, nil
}

// signerSessions builds a session manager that authenticates through the
// hosted signer service instead of the local agent; the rest of the wiring
// is shared with the primary manager.
func (a *app) signerSessions(out io.Writer) *application.SessionManager {
	prover := &authadapter.SignerServiceProver{
		Issuer:     a.signerLogin.Issuer,
		ClientID:   a.signerLogin.ClientID,
		ListenAddr: a.signerLogin.ListenAddr,
		Timeout:    a.signerLogin.Timeout,
		Out:        out,
	}

	return application.NewSessionManager(a.agent, a.resolver, prover, a.store, a.accounts, nil, a.log, a.metrics)
}

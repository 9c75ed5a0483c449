// Package auth implements the alternate login path: instead of a local
// key-custody agent, a hosted signer service authenticates the user through
// an OAuth authorization-code flow with PKCE. It plugs into the same
// session lifecycle as challenge-response signing via
// application.IdentityProver.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ledgist/hivewallet/internal/application"
	"github.com/ledgist/hivewallet/internal/domain"
)

const maxTokenResponseBytes = 1 << 20

var (
	ErrStateMismatch   = errors.New("oauth callback state mismatch")
	ErrCallbackTimeout = errors.New("timed out waiting for oauth callback")
	ErrMissingState    = errors.New("expected state is required")
)

type AuthorizationRequest struct {
	AuthURL       string
	ClientID      string
	RedirectURI   string
	Scopes        []string
	State         string
	CodeChallenge string
}

type ExchangedGrant struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	ExpiresIn   int64  `json:"expires_in"`
}

func BuildAuthorizationURL(req AuthorizationRequest) (string, error) {
	if req.AuthURL == "" {
		return "", errors.New("auth url is required")
	}
	if req.ClientID == "" {
		return "", errors.New("client id is required")
	}
	if req.RedirectURI == "" {
		return "", errors.New("redirect uri is required")
	}
	if req.State == "" {
		return "", errors.New("state is required")
	}
	if req.CodeChallenge == "" {
		return "", errors.New("code challenge is required")
	}

	parsed, err := url.Parse(req.AuthURL)
	if err != nil {
		return "", fmt.Errorf("parse auth url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("auth url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("auth url host is required")
	}

	q := parsed.Query()
	q.Set("response_type", "code")
	q.Set("client_id", req.ClientID)
	q.Set("redirect_uri", req.RedirectURI)
	if len(req.Scopes) > 0 {
		q.Set("scope", strings.Join(req.Scopes, " "))
	}
	q.Set("state", req.State)
	q.Set("code_challenge", req.CodeChallenge)
	q.Set("code_challenge_method", PKCEChallengeMethodS256)
	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}

type CallbackServer struct {
	expectedState string
	listener      net.Listener
	server        *http.Server
	resultCh      chan callbackResult
	resultOnce    sync.Once
	closeOnce     sync.Once
}

type callbackResult struct {
	code string
	err  error
}

func StartCallbackServer(listenAddr string, expectedState string) (*CallbackServer, error) {
	if expectedState == "" {
		return nil, ErrMissingState
	}
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen callback server: %w", err)
	}

	cb := &CallbackServer{
		expectedState: expectedState,
		listener:      listener,
		resultCh:      make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/callback", cb.handleCallback)

	cb.server = &http.Server{Handler: mux}

	go func() {
		if serveErr := cb.server.Serve(cb.listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			cb.trySendResult(callbackResult{err: serveErr})
		}
	}()

	return cb, nil
}

func (c *CallbackServer) RedirectURI() string {
	if tcpAddr, ok := c.listener.Addr().(*net.TCPAddr); ok {
		return fmt.Sprintf("http://localhost:%d/auth/callback", tcpAddr.Port)
	}
	return "http://localhost/auth/callback"
}

func (c *CallbackServer) WaitForCode(timeout time.Duration) (string, error) {
	defer c.Close()

	select {
	case result := <-c.resultCh:
		return result.code, result.err
	case <-time.After(timeout):
		return "", ErrCallbackTimeout
	}
}

func (c *CallbackServer) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		closeErr = c.server.Close()
	})
	return closeErr
}

func (c *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	if state != c.expectedState {
		c.trySendResult(callbackResult{err: ErrStateMismatch})
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}
	if oauthError := r.URL.Query().Get("error"); oauthError != "" {
		description := r.URL.Query().Get("error_description")
		if description != "" {
			oauthError = oauthError + ": " + description
		}
		c.trySendResult(callbackResult{err: errors.New(oauthError)})
		http.Error(w, "oauth error", http.StatusBadRequest)
		return
	}
	if code == "" {
		c.trySendResult(callbackResult{err: errors.New("missing authorization code")})
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	c.trySendResult(callbackResult{code: code})
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Login complete. You can close this window."))
}

func (c *CallbackServer) trySendResult(result callbackResult) {
	c.resultOnce.Do(func() {
		c.resultCh <- result
	})
}

type tokenExchangeRequest struct {
	issuer       string
	clientID     string
	redirectURI  string
	code         string
	codeVerifier string
}

func exchangeCodeForGrant(ctx context.Context, client *http.Client, req tokenExchangeRequest) (ExchangedGrant, error) {
	if client == nil {
		client = http.DefaultClient
	}

	endpoint := strings.TrimRight(req.issuer, "/") + "/oauth2/token"

	values := url.Values{}
	values.Set("grant_type", "authorization_code")
	values.Set("code", req.code)
	values.Set("redirect_uri", req.redirectURI)
	values.Set("client_id", req.clientID)
	values.Set("code_verifier", req.codeVerifier)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return ExchangedGrant{}, fmt.Errorf("create token exchange request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(httpReq)
	if err != nil {
		return ExchangedGrant{}, fmt.Errorf("exchange code: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return ExchangedGrant{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var grant ExchangedGrant
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenResponseBytes)).Decode(&grant); err != nil {
		return ExchangedGrant{}, fmt.Errorf("decode token response: %w", err)
	}
	if grant.AccessToken == "" || grant.Username == "" {
		return ExchangedGrant{}, errors.New("token response missing required fields")
	}

	return grant, nil
}

// SignerServiceProver authenticates through the hosted signer service's
// browser flow instead of a local agent. It satisfies the same
// IdentityProver contract the challenge-response authenticator does, so the
// session manager drives both login paths identically.
type SignerServiceProver struct {
	Issuer     string
	ClientID   string
	ListenAddr string
	Timeout    time.Duration
	HTTPClient *http.Client
	Out        io.Writer
}

var _ application.IdentityProver = (*SignerServiceProver)(nil)

func (p *SignerServiceProver) Authenticate(ctx context.Context, name string, authority domain.AuthorityLevel) (domain.Proof, error) {
	if !authority.Valid() {
		return domain.Proof{}, fmt.Errorf("invalid authority level %q", authority)
	}

	pkce, err := NewPKCEPair()
	if err != nil {
		return domain.Proof{}, fmt.Errorf("generate pkce: %w", err)
	}
	state, err := NewState()
	if err != nil {
		return domain.Proof{}, fmt.Errorf("generate oauth state: %w", err)
	}

	server, err := StartCallbackServer(p.ListenAddr, state)
	if err != nil {
		return domain.Proof{}, fmt.Errorf("start callback server: %w", err)
	}

	authURL, err := BuildAuthorizationURL(AuthorizationRequest{
		AuthURL:       strings.TrimRight(p.Issuer, "/") + "/oauth2/authorize",
		ClientID:      p.ClientID,
		RedirectURI:   server.RedirectURI(),
		Scopes:        []string{"login"},
		State:         state,
		CodeChallenge: pkce.Challenge,
	})
	if err != nil {
		_ = server.Close()
		return domain.Proof{}, fmt.Errorf("build authorization url: %w", err)
	}

	if p.Out != nil {
		_, _ = fmt.Fprintf(p.Out, "Open this URL to authorize @%s:\n%s\n", name, authURL)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	code, err := server.WaitForCode(timeout)
	if err != nil {
		if errors.Is(err, ErrCallbackTimeout) {
			return domain.Proof{}, domain.ErrAuthTimeout
		}
		return domain.Proof{}, fmt.Errorf("wait for oauth callback: %w", err)
	}

	grant, err := exchangeCodeForGrant(ctx, p.HTTPClient, tokenExchangeRequest{
		issuer:       p.Issuer,
		clientID:     p.ClientID,
		redirectURI:  server.RedirectURI(),
		code:         code,
		codeVerifier: pkce.Verifier,
	})
	if err != nil {
		return domain.Proof{}, fmt.Errorf("exchange code for grant: %w", err)
	}

	if grant.Username != name {
		return domain.Proof{}, fmt.Errorf("%w: service authorized @%s, expected @%s", domain.ErrUserRejected, grant.Username, name)
	}

	// The grant stands in for a signature: possession of a service-issued
	// token scoped to the account proves control of it.
	return domain.Proof{Challenge: state, Signature: grant.AccessToken}, nil
}

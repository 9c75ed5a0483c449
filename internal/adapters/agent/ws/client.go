// Package ws talks to a local key-custody signer daemon over a WebSocket
// endpoint. It is the only code in the repository that reaches the agent;
// everything else goes through ports.CustodyAgent. The daemon holds the
// keys — nothing in this protocol ever carries key material.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ledgist/hivewallet/internal/domain"
	"github.com/ledgist/hivewallet/internal/ports"
)

const (
	methodListIdentities = "list_identities"
	methodSignChallenge  = "sign_challenge"
	methodBroadcast      = "broadcast"

	defaultDialTimeout = 3 * time.Second
	defaultCallTimeout = 60 * time.Second
)

// Daemon error codes mapped onto the domain taxonomy.
const (
	codeLocked          = "locked"
	codeUserRejected    = "user_rejected"
	codeUnknownIdentity = "unknown_identity"
)

type request struct {
	ID         string             `json:"id"`
	Method     string             `json:"method"`
	Identity   string             `json:"identity,omitempty"`
	Message    string             `json:"message,omitempty"`
	Authority  string             `json:"authority,omitempty"`
	Operations []operationPayload `json:"operations,omitempty"`
}

type operationPayload struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

type response struct {
	ID            string        `json:"id"`
	OK            bool          `json:"ok"`
	Error         *errorPayload `json:"error,omitempty"`
	Identities    []string      `json:"identities,omitempty"`
	Signature     string        `json:"signature,omitempty"`
	PublicKey     string        `json:"public_key,omitempty"`
	Message       string        `json:"message,omitempty"`
	TransactionID string        `json:"transaction_id,omitempty"`
	BlockNum      uint32        `json:"block_num,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client dials the daemon once per call: a signing request is a single
// prompt-and-answer exchange, and per-call connections keep the adapter
// free of read-pump state. Presence is simply whether a dial succeeds.
type Client struct {
	url         string
	dialer      *websocket.Dialer
	callTimeout time.Duration
	log         *slog.Logger
}

var _ ports.CustodyAgent = (*Client)(nil)

func NewClient(url string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		url:         url,
		dialer:      &websocket.Dialer{HandshakeTimeout: defaultDialTimeout},
		callTimeout: defaultCallTimeout,
		log:         log,
	}
}

func (c *Client) Present(ctx context.Context) bool {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (c *Client) ListIdentities(ctx context.Context) ([]string, error) {
	resp, err := c.call(ctx, request{Method: methodListIdentities})
	if err != nil {
		return nil, err
	}
	return resp.Identities, nil
}

func (c *Client) SignChallenge(ctx context.Context, identity, message string, authority domain.AuthorityLevel) (domain.Proof, error) {
	resp, err := c.call(ctx, request{
		Method:    methodSignChallenge,
		Identity:  identity,
		Message:   message,
		Authority: string(authority),
	})
	if err != nil {
		return domain.Proof{}, err
	}

	return domain.Proof{
		Challenge: resp.Message,
		Signature: resp.Signature,
		PublicKey: resp.PublicKey,
	}, nil
}

func (c *Client) Broadcast(ctx context.Context, identity string, ops []domain.Operation, authority domain.AuthorityLevel) (domain.Receipt, error) {
	payloads, err := encodeOperations(ops)
	if err != nil {
		return domain.Receipt{}, err
	}

	resp, err := c.call(ctx, request{
		Method:     methodBroadcast,
		Identity:   identity,
		Authority:  string(authority),
		Operations: payloads,
	})
	if err != nil {
		return domain.Receipt{}, err
	}

	return domain.Receipt{TransactionID: resp.TransactionID, BlockNum: resp.BlockNum}, nil
}

func (c *Client) call(ctx context.Context, req request) (response, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return response{}, fmt.Errorf("dial signer daemon: %w", errors.Join(domain.ErrAgentNotInstalled, err))
	}
	defer func() { _ = conn.Close() }()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.callTimeout)
	}
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	req.ID = uuid.NewString()
	if err := conn.WriteJSON(req); err != nil {
		return response{}, fmt.Errorf("write %s request: %w", req.Method, err)
	}

	// The daemon may interleave unrelated notifications; read until our
	// correlation id comes back.
	for {
		var resp response
		if err := conn.ReadJSON(&resp); err != nil {
			return response{}, fmt.Errorf("read %s response: %w", req.Method, err)
		}
		if resp.ID != req.ID {
			c.log.Debug("skipping uncorrelated agent frame", "got", resp.ID, "want", req.ID)
			continue
		}

		if !resp.OK {
			return response{}, mapDaemonError(req.Method, resp.Error)
		}
		return resp, nil
	}
}

func mapDaemonError(method string, payload *errorPayload) error {
	if payload == nil {
		return fmt.Errorf("%s failed with no error detail", method)
	}

	switch payload.Code {
	case codeLocked:
		return fmt.Errorf("%w: %s", domain.ErrAgentLocked, payload.Message)
	case codeUserRejected:
		return fmt.Errorf("%w: %s", domain.ErrUserRejected, payload.Message)
	case codeUnknownIdentity:
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, payload.Message)
	default:
		return fmt.Errorf("%s failed: %s: %s", method, payload.Code, payload.Message)
	}
}

func encodeOperations(ops []domain.Operation) ([]operationPayload, error) {
	payloads := make([]operationPayload, 0, len(ops))
	for _, op := range ops {
		body, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("encode %s operation: %w", op.OperationName(), err)
		}
		payloads = append(payloads, operationPayload{Type: op.OperationName(), Body: body})
	}
	return payloads, nil
}

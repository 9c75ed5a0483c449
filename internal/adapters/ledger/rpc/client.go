// Package rpc resolves ledger accounts through a condenser-style JSON-RPC
// read API.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ledgist/hivewallet/internal/domain"
	"github.com/ledgist/hivewallet/internal/ports"
)

const maxRPCResponseBytes = 1 << 20

type Client struct {
	NodeURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

var _ ports.AccountResolver = (*Client)(nil)

func NewClient(nodeURL string) *Client {
	return &Client{NodeURL: nodeURL}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type accountRecord struct {
	Name              string          `json:"name"`
	Balance           string          `json:"balance"`
	HBDBalance        string          `json:"hbd_balance"`
	VestingShares     string          `json:"vesting_shares"`
	DelegatedVesting  string          `json:"delegated_vesting_shares"`
	ReceivedVesting   string          `json:"received_vesting_shares"`
	Owner             authorityRecord `json:"owner"`
	Active            authorityRecord `json:"active"`
	Posting           authorityRecord `json:"posting"`
	MemoKey           string          `json:"memo_key"`
	VotingPower       int             `json:"voting_power"`
	Reputation        json.Number     `json:"reputation"`
	Created           string          `json:"created"`
	LastAccountUpdate string          `json:"last_account_update"`
}

type authorityRecord struct {
	WeightThreshold uint32              `json:"weight_threshold"`
	AccountAuths    [][]json.RawMessage `json:"account_auths"`
	KeyAuths        [][]json.RawMessage `json:"key_auths"`
}

// Resolve looks up name on the ledger. It distinguishes a missing account
// (domain.ErrAccountNotFound) from a transport failure (wrapping
// domain.ErrNetworkFailure) and performs no retries; retry policy belongs
// to the caller.
func (c *Client) Resolve(ctx context.Context, name string) (domain.Account, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Account{}, errors.New("account name is required")
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "condenser_api.get_accounts",
		Params:  [][]string{{name}},
		ID:      1,
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("encode rpc request: %w", err)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.NodeURL, bytes.NewReader(body))
	if err != nil {
		return domain.Account{}, fmt.Errorf("create rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return domain.Account{}, fmt.Errorf("query ledger node: %w", errors.Join(domain.ErrNetworkFailure, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.Account{}, fmt.Errorf("%w: ledger node returned status %d", domain.ErrNetworkFailure, resp.StatusCode)
	}

	var payload rpcResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRPCResponseBytes)).Decode(&payload); err != nil {
		return domain.Account{}, fmt.Errorf("decode rpc response: %w", errors.Join(domain.ErrNetworkFailure, err))
	}
	if payload.Error != nil {
		return domain.Account{}, fmt.Errorf("%w: rpc error %d: %s", domain.ErrNetworkFailure, payload.Error.Code, payload.Error.Message)
	}

	var records []accountRecord
	if err := json.Unmarshal(payload.Result, &records); err != nil {
		return domain.Account{}, fmt.Errorf("decode account records: %w", errors.Join(domain.ErrNetworkFailure, err))
	}
	if len(records) == 0 {
		return domain.Account{}, fmt.Errorf("%w: %q", domain.ErrAccountNotFound, name)
	}

	return mapAccount(records[0]), nil
}

func mapAccount(rec accountRecord) domain.Account {
	reputation, _ := rec.Reputation.Int64()

	return domain.Account{
		Name:          rec.Name,
		Balance:       parseAsset(rec.Balance),
		StableBalance: parseAsset(rec.HBDBalance),
		Staked: domain.StakedBalance{
			Vests:     rec.VestingShares,
			Delegated: rec.DelegatedVesting,
			Received:  rec.ReceivedVesting,
		},
		Owner:         mapAuthority(rec.Owner),
		Active:        mapAuthority(rec.Active),
		Posting:       mapAuthority(rec.Posting),
		MemoKey:       rec.MemoKey,
		VotingPower:   rec.VotingPower,
		Reputation:    reputation,
		CreatedAt:     parseChainTime(rec.Created),
		LastUpdatedAt: parseChainTime(rec.LastAccountUpdate),
	}
}

func mapAuthority(rec authorityRecord) domain.Authority {
	authority := domain.Authority{WeightThreshold: rec.WeightThreshold}

	for _, pair := range rec.AccountAuths {
		account, weight, ok := decodeAuthPair(pair)
		if !ok {
			continue
		}
		authority.AccountAuths = append(authority.AccountAuths, domain.AccountAuth{Account: account, Weight: weight})
	}
	for _, pair := range rec.KeyAuths {
		key, weight, ok := decodeAuthPair(pair)
		if !ok {
			continue
		}
		authority.KeyAuths = append(authority.KeyAuths, domain.KeyAuth{Key: key, Weight: weight})
	}

	return authority
}

// decodeAuthPair unpacks the ledger's mixed-type ["name-or-key", weight]
// authorization tuples.
func decodeAuthPair(pair []json.RawMessage) (string, uint16, bool) {
	if len(pair) != 2 {
		return "", 0, false
	}

	var subject string
	if err := json.Unmarshal(pair[0], &subject); err != nil {
		return "", 0, false
	}

	var weight uint16
	if err := json.Unmarshal(pair[1], &weight); err != nil {
		return "", 0, false
	}

	return subject, weight, true
}

// parseAsset splits "3.141 HIVE" into amount and symbol.
func parseAsset(s string) domain.Asset {
	amount, symbol, found := strings.Cut(strings.TrimSpace(s), " ")
	if !found {
		return domain.Asset{Amount: amount}
	}
	if _, err := strconv.ParseFloat(amount, 64); err != nil {
		return domain.Asset{}
	}
	return domain.Asset{Amount: amount, Symbol: symbol}
}

// parseChainTime reads the ledger's zone-less timestamps, which are UTC.
func parseChainTime(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}

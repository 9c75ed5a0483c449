package domain

import "time"

// Asset is an amount of a single ledger currency, e.g. "3.141 HIVE".
// Amounts stay decimal strings; this layer never does arithmetic on them.
type Asset struct {
	Amount string `json:"amount"`
	Symbol string `json:"symbol"`
}

func (a Asset) String() string {
	if a.Amount == "" && a.Symbol == "" {
		return ""
	}
	return a.Amount + " " + a.Symbol
}

type AccountAuth struct {
	Account string
	Weight  uint16
}

type KeyAuth struct {
	Key    string
	Weight uint16
}

// Authority is one tier of an account's signing policy: a weight threshold
// satisfied by any combination of key and account authorizations.
type Authority struct {
	WeightThreshold uint32
	AccountAuths    []AccountAuth
	KeyAuths        []KeyAuth
}

// StakedBalance is the vested portion of an account's holdings, including
// stake delegated away and received from others.
type StakedBalance struct {
	Vests     string
	Delegated string
	Received  string
}

// Account is a snapshot of a ledger identity. The account resolver produces
// it and refreshes replace it wholesale; nothing mutates it in place.
type Account struct {
	Name          string
	Balance       Asset
	StableBalance Asset
	Staked        StakedBalance
	Owner         Authority
	Active        Authority
	Posting       Authority
	MemoKey       string
	VotingPower   int
	Reputation    int64
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

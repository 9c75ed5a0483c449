package domain

import "encoding/json"

// AuthorityLevel is the tiered permission an operation needs to be signed.
// Active is the higher tier and covers everything Posting covers.
type AuthorityLevel string

const (
	AuthorityPosting AuthorityLevel = "posting"
	AuthorityActive  AuthorityLevel = "active"
)

func (l AuthorityLevel) Valid() bool {
	return l == AuthorityPosting || l == AuthorityActive
}

// Covers reports whether signing at level l satisfies the requirement.
func (l AuthorityLevel) Covers(required AuthorityLevel) bool {
	if l == AuthorityActive {
		return true
	}
	return required == AuthorityPosting
}

// Operation is a typed ledger instruction. An operation is built by a caller
// and consumed exactly once by the broadcaster; it carries the authority
// level required to sign it.
type Operation interface {
	OperationName() string
	RequiredAuthority() AuthorityLevel
}

type TransferOperation struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount Asset  `json:"amount"`
	Memo   string `json:"memo"`
}

func (TransferOperation) OperationName() string             { return "transfer" }
func (TransferOperation) RequiredAuthority() AuthorityLevel { return AuthorityActive }

type VoteOperation struct {
	Voter    string `json:"voter"`
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
	Weight   int16  `json:"weight"`
}

func (VoteOperation) OperationName() string             { return "vote" }
func (VoteOperation) RequiredAuthority() AuthorityLevel { return AuthorityPosting }

// CustomJSONOperation carries an opaque application payload. It requires
// active authority when any active auth is named, posting otherwise.
type CustomJSONOperation struct {
	ID                   string          `json:"id"`
	JSON                 json.RawMessage `json:"json"`
	RequiredAuths        []string        `json:"required_auths"`
	RequiredPostingAuths []string        `json:"required_posting_auths"`
}

func (CustomJSONOperation) OperationName() string { return "custom_json" }

func (op CustomJSONOperation) RequiredAuthority() AuthorityLevel {
	if len(op.RequiredAuths) > 0 {
		return AuthorityActive
	}
	return AuthorityPosting
}

// Proof is a signed challenge response returned by the key-custody agent.
// It never contains key material, only the signature and the public key the
// agent signed with.
type Proof struct {
	Challenge string
	Signature string
	PublicKey string
}

// Receipt identifies a broadcast transaction on the ledger.
type Receipt struct {
	TransactionID string
	BlockNum      uint32
}

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAccountName(t *testing.T) {
	t.Parallel()

	valid := []string{"alice", "bob-1", "carol.dole", "abc", "a1b2c3", "hello.world-99"}
	for _, name := range valid {
		assert.NoError(t, ValidateAccountName(name), name)
	}

	invalid := []string{
		"",
		"ab",
		"this-name-is-way-too-long",
		"Alice",
		"1alice",
		"alice-",
		"al ice",
		"alice..bob",
		"a.b",
		"alice_bob",
	}
	for _, name := range invalid {
		err := ValidateAccountName(name)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrInvalidIdentityFormat, name)
	}
}

func TestAuthorityLevelCovers(t *testing.T) {
	t.Parallel()

	assert.True(t, AuthorityActive.Covers(AuthorityPosting))
	assert.True(t, AuthorityActive.Covers(AuthorityActive))
	assert.True(t, AuthorityPosting.Covers(AuthorityPosting))
	assert.False(t, AuthorityPosting.Covers(AuthorityActive))
}

func TestOperationRequiredAuthority(t *testing.T) {
	t.Parallel()

	assert.Equal(t, AuthorityActive, TransferOperation{}.RequiredAuthority())
	assert.Equal(t, AuthorityPosting, VoteOperation{}.RequiredAuthority())
	assert.Equal(t, AuthorityPosting, CustomJSONOperation{}.RequiredAuthority())
	assert.Equal(t, AuthorityActive, CustomJSONOperation{RequiredAuths: []string{"alice"}}.RequiredAuthority())
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		kind FailureKind
	}{
		{ErrAgentNotInstalled, KindAgentNotInstalled},
		{ErrInvalidIdentityFormat, KindInvalidIdentity},
		{ErrIdentityRequired, KindInvalidIdentity},
		{ErrAccountNotFound, KindIdentityNotFound},
		{ErrNetworkFailure, KindNetworkFailure},
		{ErrUserRejected, KindAuthenticationFailed},
		{ErrAuthTimeout, KindAuthenticationFailed},
		{ErrAgentLocked, KindAuthenticationFailed},
		{ErrMalformedProof, KindAuthenticationFailed},
		{ErrNotConnected, KindNotConnected},
		{errors.New("anything"), KindUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, KindOf(tc.err), tc.err.Error())
		assert.NotEmpty(t, tc.kind.Message())
	}

	// Wrapping preserves classification, and a broadcast wrap wins over the
	// underlying agent error.
	wrapped := fmt.Errorf("resolve: %w", ErrAccountNotFound)
	assert.Equal(t, KindIdentityNotFound, KindOf(wrapped))

	joined := fmt.Errorf("broadcast: %w", errors.Join(ErrBroadcastFailed, ErrUserRejected))
	assert.Equal(t, KindBroadcastFailed, KindOf(joined))
}

func TestExpected(t *testing.T) {
	t.Parallel()

	assert.True(t, Expected(fmt.Errorf("declined: %w", ErrUserRejected)))
	assert.False(t, Expected(ErrAuthTimeout))
	assert.False(t, Expected(nil))
}

func TestSessionStateConsistent(t *testing.T) {
	t.Parallel()

	account := &Account{Name: "alice"}

	assert.True(t, SessionState{Status: StatusDisconnected}.Consistent())
	assert.True(t, SessionState{Status: StatusConnected, Identity: account}.Consistent())
	assert.False(t, SessionState{Status: StatusConnected}.Consistent())
	assert.False(t, SessionState{Status: StatusDisconnected, Identity: account}.Consistent())
	assert.False(t, SessionState{Status: StatusConnecting, Identity: account}.Consistent())
}

func TestAssetString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "3.141 HIVE", Asset{Amount: "3.141", Symbol: "HIVE"}.String())
	assert.Equal(t, "", Asset{}.String())
}

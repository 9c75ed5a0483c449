package ports

import (
	"context"

	"github.com/ledgist/hivewallet/internal/domain"
)

// AccountResolver is a pure lookup against the remote ledger's read API. It
// reports and never mutates session state. A missing account is
// domain.ErrAccountNotFound; transport problems wrap
// domain.ErrNetworkFailure so callers can tell the two apart.
type AccountResolver interface {
	Resolve(ctx context.Context, name string) (domain.Account, error)
}

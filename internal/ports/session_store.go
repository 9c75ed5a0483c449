package ports

import "context"

// SessionPointerStore persists the single last-connected-identity pointer
// across process restarts. It only ever holds an account name, never
// credentials or key material.
type SessionPointerStore interface {
	// Load returns the stored identity name, or "" when none is stored.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, name string) error
	// Clear removes the pointer; clearing an absent pointer is not an error.
	Clear(ctx context.Context) error
}

// Package service implements the quest ledger's cooperating components:
// the authorization gate, the referential integrity engine, the accrual
// engine, the vault allocator, and the Ledger facade that exposes the
// external operations.
package service

import (
	"context"

	"github.com/louisbranch/questline/internal/ledger/domain"
	apperrors "github.com/louisbranch/questline/internal/platform/errors"
)

// Authenticator is the external authorization oracle. It proves that a
// caller-supplied identity is the authenticated actor of the current
// action; how it proves that (signatures, sessions) is outside the ledger.
type Authenticator interface {
	Authenticate(ctx context.Context, identity domain.Identity) error
}

// Gate validates caller identities and ownership before any further state
// is read. Authentication failures and ownership failures are distinct
// outcomes and never conflated.
type Gate struct {
	auth    Authenticator
	service domain.Identity
}

// NewGate creates a Gate backed by the given oracle. The service identity
// is the ledger's own account, required for privileged operations.
func NewGate(auth Authenticator, service domain.Identity) *Gate {
	return &Gate{auth: auth, service: service}
}

// Actor verifies that the claimed identity is the authenticated actor.
func (g *Gate) Actor(ctx context.Context, identity domain.Identity) error {
	identity, err := domain.NormalizeIdentity(identity)
	if err != nil {
		return err
	}
	if g == nil || g.auth == nil {
		return apperrors.New(apperrors.CodeIdentityRejected, "authorization oracle is not configured")
	}
	if err := g.auth.Authenticate(ctx, identity); err != nil {
		return apperrors.Wrap(apperrors.CodeIdentityRejected, "identity not authenticated", err)
	}
	return nil
}

// Privileged verifies the claimed actor and additionally requires the
// ledger's own service identity to authorize the action.
func (g *Gate) Privileged(ctx context.Context, identity domain.Identity) error {
	if err := g.Actor(ctx, identity); err != nil {
		return err
	}
	if err := g.auth.Authenticate(ctx, g.service); err != nil {
		return apperrors.Wrap(apperrors.CodeIdentityRejected, "service identity not authenticated", err)
	}
	return nil
}

// Owner requires the recorded owner of an entity to equal the claimed
// actor. It reports the distinct not-owner failure, never an
// authentication failure.
func (g *Gate) Owner(recorded, claimed domain.Identity) error {
	if recorded != claimed {
		return apperrors.WithMetadata(apperrors.CodeNotOwner,
			"actor is not the recorded owner",
			map[string]string{"owner": string(recorded), "actor": string(claimed)})
	}
	return nil
}

package domain

import (
	"strings"

	apperrors "github.com/louisbranch/questline/internal/platform/errors"
)

// Identity names an external account. The ledger treats identities as
// opaque: proving an identity belongs to the caller is the authorization
// oracle's job, comparing identities is ours.
type Identity string

// ErrIdentityEmpty indicates a missing account identity.
var ErrIdentityEmpty = apperrors.New(apperrors.CodeIdentityEmpty, "account identity is required")

// NormalizeIdentity trims surrounding whitespace and rejects empty
// identities.
func NormalizeIdentity(identity Identity) (Identity, error) {
	trimmed := Identity(strings.TrimSpace(string(identity)))
	if trimmed == "" {
		return "", ErrIdentityEmpty
	}
	return trimmed, nil
}

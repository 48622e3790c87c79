package app

import (
	"context"
	"fmt"

	"github.com/louisbranch/questline/internal/ledger/domain"
	"github.com/louisbranch/questline/internal/ledger/service"
)

// enrollmentAuthenticator is the deployment's authorization oracle: an
// identity authenticates when it appears in the enrolled set. An empty
// set accepts every identity, for deployments that authenticate at the
// transport in front of the service.
type enrollmentAuthenticator struct {
	enrolled map[domain.Identity]struct{}
}

func newEnrollmentAuthenticator(identities []string) service.Authenticator {
	a := &enrollmentAuthenticator{}
	for _, raw := range identities {
		identity, err := domain.NormalizeIdentity(domain.Identity(raw))
		if err != nil {
			continue
		}
		if a.enrolled == nil {
			a.enrolled = make(map[domain.Identity]struct{})
		}
		a.enrolled[identity] = struct{}{}
	}
	return a
}

func (a *enrollmentAuthenticator) Authenticate(_ context.Context, identity domain.Identity) error {
	if len(a.enrolled) == 0 {
		return nil
	}
	if _, ok := a.enrolled[identity]; !ok {
		return fmt.Errorf("identity %q is not enrolled", identity)
	}
	return nil
}

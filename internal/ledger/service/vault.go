package service

import (
	"context"
	"time"

	"github.com/louisbranch/questline/internal/ledger/domain"
	"github.com/louisbranch/questline/internal/ledger/storage"
	apperrors "github.com/louisbranch/questline/internal/platform/errors"
	"github.com/louisbranch/questline/internal/telemetry"
)

// Vault applies external asset-deposit notifications to community vaults.
//
// By the time a notification arrives the asset has already moved custody;
// the allocator can only accept or reject the bookkeeping update. A
// rejected deposit therefore leaves real assets unaccounted for -- that
// reconciliation gap is inherent to the notification design and is handled
// through the explicit, audited reversal operations, never by automatic
// rollback.
type Vault struct {
	store   storage.CommunityStore
	emitter *telemetry.Emitter
	clock   func() time.Time
}

// NewVault creates the vault allocator over the community table.
func NewVault(store storage.CommunityStore, emitter *telemetry.Emitter) *Vault {
	return &Vault{store: store, emitter: emitter, clock: time.Now}
}

// route decodes the memo and loads the target community, enforcing the
// self-funding rule: only the community's recorded owner may deposit.
// Nothing is touched until the memo and ownership both check out.
func (v *Vault) route(ctx context.Context, from domain.Identity, memo string) (domain.Community, error) {
	communityID, err := domain.DecodeMemo(memo)
	if err != nil {
		return domain.Community{}, err
	}
	community, err := v.store.GetCommunity(ctx, from, communityID)
	if err != nil {
		return domain.Community{}, err
	}
	if community.Owner != from {
		return domain.Community{}, apperrors.WithMetadata(apperrors.CodeNotOwner,
			"only the community owner may fund its vault",
			map[string]string{"community": communityID.String(), "from": string(from)})
	}
	return community, nil
}

// FungibleDeposit applies a fungible-token deposit notification. The
// stored balance is REPLACED with the deposited amount, not summed;
// the last deposit wins.
func (v *Vault) FungibleDeposit(ctx context.Context, from domain.Identity, amount domain.TokenBalance, memo string) error {
	community, err := v.route(ctx, from, memo)
	if err != nil {
		return err
	}

	community.TokenBalance = amount
	community.UpdatedAt = v.clock().UTC()
	if err := v.store.UpdateCommunity(ctx, from, community); err != nil {
		return err
	}

	return v.emitter.Emit(ctx, storage.TelemetryEvent{
		EventName: "vault.deposit.fungible",
		Severity:  string(telemetry.SeverityInfo),
		Actor:     string(from),
		EntityID:  community.ID.String(),
		Attributes: map[string]string{
			"amount": amount.Symbol,
		},
	})
}

// NFTDeposit applies a non-fungible-asset deposit notification. The
// incoming asset ids are APPENDED to the community's held list.
func (v *Vault) NFTDeposit(ctx context.Context, from domain.Identity, assetIDs []string, memo string) error {
	community, err := v.route(ctx, from, memo)
	if err != nil {
		return err
	}

	community.NFTs = append(community.NFTs, assetIDs...)
	community.UpdatedAt = v.clock().UTC()
	if err := v.store.UpdateCommunity(ctx, from, community); err != nil {
		return err
	}

	return v.emitter.Emit(ctx, storage.TelemetryEvent{
		EventName: "vault.deposit.nft",
		Severity:  string(telemetry.SeverityInfo),
		Actor:     string(from),
		EntityID:  community.ID.String(),
	})
}

// ReverseFungible is the compensating entry for a misapplied fungible
// deposit: it rewrites the stored balance to the supplied prior value.
// The reversal is an explicit, audited operation -- the ledger cannot move
// the underlying asset back, only correct its own books.
func (v *Vault) ReverseFungible(ctx context.Context, owner domain.Identity, communityID domain.ID, restored domain.TokenBalance) error {
	community, err := v.store.GetCommunity(ctx, owner, communityID)
	if err != nil {
		return err
	}

	community.TokenBalance = restored
	community.UpdatedAt = v.clock().UTC()
	if err := v.store.UpdateCommunity(ctx, owner, community); err != nil {
		return err
	}

	return v.emitter.Emit(ctx, storage.TelemetryEvent{
		EventName: "vault.reversal.fungible",
		Severity:  string(telemetry.SeverityWarn),
		Actor:     string(owner),
		EntityID:  communityID.String(),
	})
}

// ReverseNFT is the compensating entry for a misapplied NFT deposit: it
// removes the listed asset ids from the community's held list. Ids not
// present are ignored rather than failing the whole reversal.
func (v *Vault) ReverseNFT(ctx context.Context, owner domain.Identity, communityID domain.ID, assetIDs []string) error {
	community, err := v.store.GetCommunity(ctx, owner, communityID)
	if err != nil {
		return err
	}

	remove := make(map[string]bool, len(assetIDs))
	for _, id := range assetIDs {
		remove[id] = true
	}
	kept := community.NFTs[:0:0]
	for _, id := range community.NFTs {
		if !remove[id] {
			kept = append(kept, id)
		}
	}

	community.NFTs = kept
	community.UpdatedAt = v.clock().UTC()
	if err := v.store.UpdateCommunity(ctx, owner, community); err != nil {
		return err
	}

	return v.emitter.Emit(ctx, storage.TelemetryEvent{
		EventName: "vault.reversal.nft",
		Severity:  string(telemetry.SeverityWarn),
		Actor:     string(owner),
		EntityID:  communityID.String(),
	})
}

package service

import (
	"context"
	"testing"

	"github.com/louisbranch/questline/internal/ledger/domain"
	apperrors "github.com/louisbranch/questline/internal/platform/errors"
	"github.com/louisbranch/questline/internal/telemetry"
	"github.com/louisbranch/questline/internal/testkit/ledgerfakes"
)

const communityMemo = "2222222222222222"

func seedCommunity(t *testing.T, store *ledgerfakes.Store, id domain.ID, owner domain.Identity) domain.Community {
	t.Helper()
	community, err := domain.CreateCommunity(domain.CreateCommunityInput{
		ID:    id,
		Name:  "Community",
		Owner: owner,
	}, testClock)
	if err != nil {
		t.Fatalf("create community: %v", err)
	}
	if err := store.CreateCommunity(context.Background(), owner, community); err != nil {
		t.Fatalf("seed community: %v", err)
	}
	return community
}

func newTestVault(store *ledgerfakes.Store) *Vault {
	return NewVault(store, telemetry.NewEmitter(store))
}

// TestFungibleDepositReplacesBalance pins the last-deposit-wins rule:
// a second fungible deposit overwrites the stored balance instead of
// summing into it.
func TestFungibleDepositReplacesBalance(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedCommunity(t, store, communityID, "alice")
	vault := newTestVault(store)

	first := domain.TokenBalance{Amount: 100, Symbol: "GOLD"}
	if err := vault.FungibleDeposit(ctx, "alice", first, communityMemo); err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	second := domain.TokenBalance{Amount: 40, Symbol: "GOLD"}
	if err := vault.FungibleDeposit(ctx, "alice", second, communityMemo); err != nil {
		t.Fatalf("second deposit: %v", err)
	}

	community, err := store.GetCommunity(ctx, "alice", communityID)
	if err != nil {
		t.Fatalf("get community: %v", err)
	}
	if community.TokenBalance != second {
		t.Fatalf("expected balance replaced with %+v, got %+v", second, community.TokenBalance)
	}
}

func TestNFTDepositAppendsAssets(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedCommunity(t, store, communityID, "alice")
	vault := newTestVault(store)

	if err := vault.NFTDeposit(ctx, "alice", []string{"asset-1", "asset-2"}, communityMemo); err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if err := vault.NFTDeposit(ctx, "alice", []string{"asset-3"}, communityMemo); err != nil {
		t.Fatalf("second deposit: %v", err)
	}

	community, err := store.GetCommunity(ctx, "alice", communityID)
	if err != nil {
		t.Fatalf("get community: %v", err)
	}
	want := []string{"asset-1", "asset-2", "asset-3"}
	if len(community.NFTs) != len(want) {
		t.Fatalf("expected %d held assets, got %d", len(want), len(community.NFTs))
	}
	for i, id := range want {
		if community.NFTs[i] != id {
			t.Fatalf("held asset %d: expected %q, got %q", i, id, community.NFTs[i])
		}
	}
}

func TestDepositRejectsMalformedMemoBeforeState(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedCommunity(t, store, communityID, "alice")
	vault := newTestVault(store)

	for _, memo := range []string{"", "222222222222222", "22222222222222221", "2222-22222222222", "please route me"} {
		err := vault.FungibleDeposit(ctx, "alice", domain.TokenBalance{Amount: 1, Symbol: "GOLD"}, memo)
		if !apperrors.IsCode(err, apperrors.CodeMemoMalformed) {
			t.Fatalf("memo %q: expected MEMO_MALFORMED, got %v", memo, err)
		}
	}

	community, err := store.GetCommunity(ctx, "alice", communityID)
	if err != nil {
		t.Fatalf("get community: %v", err)
	}
	if community.TokenBalance.Amount != 0 {
		t.Fatal("rejected deposit must not touch the vault")
	}
	if len(store.TelemetryLog) != 0 {
		t.Fatal("rejected deposit must not emit telemetry")
	}
}

func TestDepositRejectsNonOwner(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	community := seedCommunity(t, store, communityID, "alice")
	// A second community under mallory's own partition with the same id:
	// the routed lookup happens in the depositor's partition, so mallory
	// only ever reaches records she owns.
	mallorys := community
	mallorys.Owner = "alice"
	if err := store.CreateCommunity(ctx, "mallory", mallorys); err != nil {
		t.Fatalf("seed foreign record: %v", err)
	}
	vault := newTestVault(store)

	err := vault.FungibleDeposit(ctx, "mallory", domain.TokenBalance{Amount: 9, Symbol: "GOLD"}, communityMemo)
	if !apperrors.IsCode(err, apperrors.CodeNotOwner) {
		t.Fatalf("expected NOT_OWNER, got %v", err)
	}
}

func TestDepositMissesForeignPartition(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedCommunity(t, store, communityID, "alice")
	vault := newTestVault(store)

	// The community exists, but only in alice's partition. A depositor
	// routing from their own partition finds nothing.
	err := vault.FungibleDeposit(ctx, "bob", domain.TokenBalance{Amount: 9, Symbol: "GOLD"}, communityMemo)
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestReverseFungibleRestoresPriorBalance(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedCommunity(t, store, communityID, "alice")
	vault := newTestVault(store)

	prior := domain.TokenBalance{Amount: 100, Symbol: "GOLD"}
	if err := vault.FungibleDeposit(ctx, "alice", prior, communityMemo); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	mistaken := domain.TokenBalance{Amount: 7, Symbol: "GOLD"}
	if err := vault.FungibleDeposit(ctx, "alice", mistaken, communityMemo); err != nil {
		t.Fatalf("mistaken deposit: %v", err)
	}

	if err := vault.ReverseFungible(ctx, "alice", communityID, prior); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	community, err := store.GetCommunity(ctx, "alice", communityID)
	if err != nil {
		t.Fatalf("get community: %v", err)
	}
	if community.TokenBalance != prior {
		t.Fatalf("expected balance restored to %+v, got %+v", prior, community.TokenBalance)
	}
}

func TestReverseNFTRemovesListedAssets(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedCommunity(t, store, communityID, "alice")
	vault := newTestVault(store)

	if err := vault.NFTDeposit(ctx, "alice", []string{"asset-1", "asset-2", "asset-3"}, communityMemo); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// One listed id is already absent; the reversal removes what it can.
	if err := vault.ReverseNFT(ctx, "alice", communityID, []string{"asset-2", "asset-9"}); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	community, err := store.GetCommunity(ctx, "alice", communityID)
	if err != nil {
		t.Fatalf("get community: %v", err)
	}
	if len(community.NFTs) != 2 || community.NFTs[0] != "asset-1" || community.NFTs[1] != "asset-3" {
		t.Fatalf("expected [asset-1 asset-3], got %v", community.NFTs)
	}
}

func TestVaultEmitsTelemetry(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedCommunity(t, store, communityID, "alice")
	vault := newTestVault(store)

	if err := vault.FungibleDeposit(ctx, "alice", domain.TokenBalance{Amount: 1, Symbol: "GOLD"}, communityMemo); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := vault.ReverseFungible(ctx, "alice", communityID, domain.TokenBalance{}); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	if len(store.TelemetryLog) != 2 {
		t.Fatalf("expected 2 telemetry events, got %d", len(store.TelemetryLog))
	}
	if store.TelemetryLog[0].EventName != "vault.deposit.fungible" {
		t.Fatalf("unexpected first event: %q", store.TelemetryLog[0].EventName)
	}
	if store.TelemetryLog[1].EventName != "vault.reversal.fungible" {
		t.Fatalf("unexpected second event: %q", store.TelemetryLog[1].EventName)
	}
	if store.TelemetryLog[1].Severity != string(telemetry.SeverityWarn) {
		t.Fatalf("reversals log at WARN, got %q", store.TelemetryLog[1].Severity)
	}
}

package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCreateCommunityZeroesCounters(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	community, err := CreateCommunity(CreateCommunityInput{
		ID:      communityID,
		Name:    "  Guild  ",
		Avatar:  "ipfs://guild",
		Owner:   "alice",
		Banners: []string{"banner-1"},
	}, fixedClock(createdAt))
	if err != nil {
		t.Fatalf("create community: %v", err)
	}

	if community.Name != "Guild" {
		t.Fatalf("expected trimmed name, got %q", community.Name)
	}
	if community.Followers != 0 || community.Score != 0 {
		t.Fatalf("expected zeroed counters, got followers=%d score=%d", community.Followers, community.Score)
	}
	if community.TokenBalance.Amount != 0 || len(community.NFTs) != 0 {
		t.Fatal("expected an empty vault")
	}
}

func TestCreateCommunityValidation(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := CreateCommunity(CreateCommunityInput{ID: 9, Name: "Guild", Owner: "alice"}, fixedClock(createdAt)); err == nil {
		t.Fatal("expected error for short id")
	}
	if _, err := CreateCommunity(CreateCommunityInput{ID: communityID, Name: " ", Owner: "alice"}, fixedClock(createdAt)); !errors.Is(err, ErrCommunityNameEmpty) {
		t.Fatalf("expected ErrCommunityNameEmpty, got %v", err)
	}
	if _, err := CreateCommunity(CreateCommunityInput{ID: communityID, Name: "Guild", Owner: ""}, fixedClock(createdAt)); !errors.Is(err, ErrIdentityEmpty) {
		t.Fatalf("expected ErrIdentityEmpty, got %v", err)
	}
}

func TestCommunityApplyEditPreservesOwnerAndVault(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	community, err := CreateCommunity(CreateCommunityInput{
		ID:    communityID,
		Name:  "Guild",
		Owner: "alice",
	}, fixedClock(createdAt))
	if err != nil {
		t.Fatalf("create community: %v", err)
	}
	community.Followers = 7
	community.TokenBalance = TokenBalance{Amount: 100, Symbol: "GOLD"}
	community.NFTs = []string{"nft-1"}

	edited, err := community.ApplyEdit(EditCommunityInput{
		Name:     "Renamed Guild",
		QuestIDs: []ID{questID},
	}, fixedClock(createdAt.Add(time.Hour)))
	if err != nil {
		t.Fatalf("apply edit: %v", err)
	}

	if edited.Owner != "alice" {
		t.Fatalf("owner must be immutable, got %q", edited.Owner)
	}
	if edited.Followers != 7 {
		t.Fatalf("followers must survive edits, got %d", edited.Followers)
	}
	if edited.TokenBalance.Amount != 100 || len(edited.NFTs) != 1 {
		t.Fatal("vault contents must survive edits")
	}
	if edited.Name != "Renamed Guild" {
		t.Fatalf("expected renamed community, got %q", edited.Name)
	}
}

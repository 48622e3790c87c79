package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/questline/internal/platform/errors"
)

// ErrCommunityNameEmpty indicates a missing community display name.
var ErrCommunityNameEmpty = apperrors.New(apperrors.CodeCommunityNameEmpty, "community name is required")

// TokenBalance is a community's stored fungible balance: an integer
// amount tagged with the asset kind it denominates.
type TokenBalance struct {
	Amount uint64
	Symbol string
}

// Community is an organizing group that owns quests and holds a deposit
// vault. The owner is immutable after creation and gates every mutation
// of the community and its quests.
type Community struct {
	ID        ID
	Name      string
	Avatar    string
	Owner     Identity
	Score     uint64
	Followers uint64
	Banners   []string

	// QuestIDs is advisory only: it is caller-maintained and never
	// reconciled against quest back-references. Ownership checks always
	// read the quest record, not this list.
	QuestIDs []ID

	// Vault contents.
	TokenBalance TokenBalance
	NFTs         []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateCommunityInput describes the fields needed to create a community.
type CreateCommunityInput struct {
	ID       ID
	Name     string
	Avatar   string
	Owner    Identity
	QuestIDs []ID
	Banners  []string
}

// CreateCommunity validates input and builds a new community record with
// zeroed counters and an empty vault.
func CreateCommunity(input CreateCommunityInput, now func() time.Time) (Community, error) {
	if now == nil {
		now = time.Now
	}
	if err := ValidateID(input.ID); err != nil {
		return Community{}, err
	}
	owner, err := NormalizeIdentity(input.Owner)
	if err != nil {
		return Community{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Community{}, ErrCommunityNameEmpty
	}

	created := now().UTC()
	return Community{
		ID:        input.ID,
		Name:      name,
		Avatar:    input.Avatar,
		Owner:     owner,
		QuestIDs:  input.QuestIDs,
		Banners:   input.Banners,
		CreatedAt: created,
		UpdatedAt: created,
	}, nil
}

// EditCommunityInput describes the mutable community fields. The owner,
// counters, and vault contents are not editable through this path.
type EditCommunityInput struct {
	Name     string
	Avatar   string
	QuestIDs []ID
	Banners  []string
}

// ApplyEdit validates input and returns the community with its mutable
// fields replaced.
func (c Community) ApplyEdit(input EditCommunityInput, now func() time.Time) (Community, error) {
	if now == nil {
		now = time.Now
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Community{}, ErrCommunityNameEmpty
	}

	c.Name = name
	c.Avatar = input.Avatar
	c.QuestIDs = input.QuestIDs
	c.Banners = input.Banners
	c.UpdatedAt = now().UTC()
	return c, nil
}

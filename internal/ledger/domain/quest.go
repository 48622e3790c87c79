package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/questline/internal/platform/errors"
)

// MinQuestDuration is the shortest allowed distance between a quest's
// creation time and its end. An end exactly at the floor is accepted.
const MinQuestDuration = 24 * time.Hour

var (
	// ErrQuestNameEmpty indicates a missing quest display name.
	ErrQuestNameEmpty = apperrors.New(apperrors.CodeQuestNameEmpty, "quest name is required")
	// ErrQuestEndTooSoon indicates a quest end before the 24-hour floor.
	ErrQuestEndTooSoon = apperrors.New(apperrors.CodeQuestEndTooSoon, "quest must run for at least 24 hours")
)

// Quest is a time-bounded campaign composed of tasks. TaskIDs mirrors the
// back-references of every task attached to the quest; the integrity
// engine is the only writer of that list.
type Quest struct {
	ID          ID
	Name        string
	Avatar      string
	EndsAt      time.Time
	Owner       Identity
	CommunityID ID // zero when the quest is unaffiliated
	TaskIDs     []ID

	// Reward-pool descriptors carried on the quest record.
	NFTs       []string
	Tokens     []string
	Whitelists uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasTask reports whether the quest's member list contains taskID.
func (q Quest) HasTask(taskID ID) bool {
	for _, id := range q.TaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// CreateQuestInput describes the fields needed to create a quest.
type CreateQuestInput struct {
	ID          ID
	Name        string
	Avatar      string
	EndsAt      time.Time
	Owner       Identity
	CommunityID ID
	NFTs        []string
	Tokens      []string
	Whitelists  uint64
}

// CreateQuest validates input and builds a new quest record with an empty
// member-task list. Community affiliation is validated by the integrity
// engine, which holds the community store.
func CreateQuest(input CreateQuestInput, now func() time.Time) (Quest, error) {
	if now == nil {
		now = time.Now
	}
	if err := ValidateID(input.ID); err != nil {
		return Quest{}, err
	}
	if !input.CommunityID.IsZero() {
		if err := ValidateID(input.CommunityID); err != nil {
			return Quest{}, err
		}
	}
	owner, err := NormalizeIdentity(input.Owner)
	if err != nil {
		return Quest{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Quest{}, ErrQuestNameEmpty
	}

	created := now().UTC()
	if input.EndsAt.Before(created.Add(MinQuestDuration)) {
		return Quest{}, ErrQuestEndTooSoon
	}

	return Quest{
		ID:          input.ID,
		Name:        name,
		Avatar:      input.Avatar,
		EndsAt:      input.EndsAt.UTC(),
		Owner:       owner,
		CommunityID: input.CommunityID,
		NFTs:        input.NFTs,
		Tokens:      input.Tokens,
		Whitelists:  input.Whitelists,
		CreatedAt:   created,
		UpdatedAt:   created,
	}, nil
}

// EditQuestInput describes the mutable quest fields. The owner and the
// member-task list are not editable through this path.
type EditQuestInput struct {
	Name        string
	Avatar      string
	EndsAt      time.Time
	CommunityID ID
	NFTs        []string
	Tokens      []string
	Whitelists  uint64
}

// ApplyEdit validates input and returns the quest with its mutable fields
// replaced. The end-time floor is re-checked against the edit time so a
// quest cannot be shortened below 24 hours of remaining runway.
func (q Quest) ApplyEdit(input EditQuestInput, now func() time.Time) (Quest, error) {
	if now == nil {
		now = time.Now
	}
	if !input.CommunityID.IsZero() {
		if err := ValidateID(input.CommunityID); err != nil {
			return Quest{}, err
		}
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Quest{}, ErrQuestNameEmpty
	}

	edited := now().UTC()
	if input.EndsAt.Before(edited.Add(MinQuestDuration)) {
		return Quest{}, ErrQuestEndTooSoon
	}

	q.Name = name
	q.Avatar = input.Avatar
	q.EndsAt = input.EndsAt.UTC()
	q.CommunityID = input.CommunityID
	q.NFTs = input.NFTs
	q.Tokens = input.Tokens
	q.Whitelists = input.Whitelists
	q.UpdatedAt = edited
	return q, nil
}

package domain

import (
	"errors"
	"testing"
	"time"
)

const (
	questID     ID = 1111111111111111
	communityID ID = 2222222222222222
	taskID      ID = 3333333333333333
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateQuestNormalizesInput(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	input := CreateQuestInput{
		ID:          questID,
		Name:        "  Launch Week  ",
		Avatar:      "ipfs://avatar",
		EndsAt:      createdAt.Add(48 * time.Hour),
		Owner:       " alice ",
		CommunityID: communityID,
		Tokens:      []string{"10 GOLD"},
		Whitelists:  2,
	}

	quest, err := CreateQuest(input, fixedClock(createdAt))
	if err != nil {
		t.Fatalf("create quest: %v", err)
	}

	if quest.Name != "Launch Week" {
		t.Fatalf("expected trimmed name, got %q", quest.Name)
	}
	if quest.Owner != "alice" {
		t.Fatalf("expected trimmed owner, got %q", quest.Owner)
	}
	if len(quest.TaskIDs) != 0 {
		t.Fatalf("expected empty member list, got %v", quest.TaskIDs)
	}
	if !quest.CreatedAt.Equal(createdAt) || !quest.UpdatedAt.Equal(createdAt) {
		t.Fatal("expected timestamps to match the fixed clock")
	}
}

func TestCreateQuestEndTimeFloor(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		endsAt time.Time
		err    error
	}{
		{
			name:   "end exactly at the floor succeeds",
			endsAt: createdAt.Add(MinQuestDuration),
		},
		{
			name:   "end one second under the floor fails",
			endsAt: createdAt.Add(MinQuestDuration - time.Second),
			err:    ErrQuestEndTooSoon,
		},
		{
			name:   "end in the past fails",
			endsAt: createdAt.Add(-time.Hour),
			err:    ErrQuestEndTooSoon,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateQuest(CreateQuestInput{
				ID:     questID,
				Name:   "Quest",
				EndsAt: tt.endsAt,
				Owner:  "alice",
			}, fixedClock(createdAt))
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestCreateQuestValidation(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	endsAt := createdAt.Add(48 * time.Hour)

	tests := []struct {
		name  string
		input CreateQuestInput
		err   error
	}{
		{
			name:  "invalid quest id",
			input: CreateQuestInput{ID: 42, Name: "Quest", EndsAt: endsAt, Owner: "alice"},
			err:   nil, // coded error, checked below by nil-ness only
		},
		{
			name:  "empty name",
			input: CreateQuestInput{ID: questID, Name: "   ", EndsAt: endsAt, Owner: "alice"},
			err:   ErrQuestNameEmpty,
		},
		{
			name:  "empty owner",
			input: CreateQuestInput{ID: questID, Name: "Quest", EndsAt: endsAt, Owner: "  "},
			err:   ErrIdentityEmpty,
		},
		{
			name:  "invalid community id",
			input: CreateQuestInput{ID: questID, Name: "Quest", EndsAt: endsAt, Owner: "alice", CommunityID: 7},
			err:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateQuest(tt.input, fixedClock(createdAt))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestQuestApplyEditReValidatesEndTime(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	quest, err := CreateQuest(CreateQuestInput{
		ID:     questID,
		Name:   "Quest",
		EndsAt: createdAt.Add(72 * time.Hour),
		Owner:  "alice",
	}, fixedClock(createdAt))
	if err != nil {
		t.Fatalf("create quest: %v", err)
	}

	editedAt := createdAt.Add(60 * time.Hour)
	_, err = quest.ApplyEdit(EditQuestInput{
		Name:   "Quest",
		EndsAt: createdAt.Add(72 * time.Hour), // only 12h of runway left
	}, fixedClock(editedAt))
	if !errors.Is(err, ErrQuestEndTooSoon) {
		t.Fatalf("expected ErrQuestEndTooSoon, got %v", err)
	}
}

func TestQuestApplyEditPreservesOwnerAndTasks(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	quest, err := CreateQuest(CreateQuestInput{
		ID:     questID,
		Name:   "Quest",
		EndsAt: createdAt.Add(72 * time.Hour),
		Owner:  "alice",
	}, fixedClock(createdAt))
	if err != nil {
		t.Fatalf("create quest: %v", err)
	}
	quest.TaskIDs = []ID{taskID}

	edited, err := quest.ApplyEdit(EditQuestInput{
		Name:        "Renamed",
		EndsAt:      createdAt.Add(96 * time.Hour),
		CommunityID: communityID,
	}, fixedClock(createdAt.Add(time.Hour)))
	if err != nil {
		t.Fatalf("apply edit: %v", err)
	}

	if edited.Owner != "alice" {
		t.Fatalf("owner must be immutable, got %q", edited.Owner)
	}
	if !edited.HasTask(taskID) {
		t.Fatal("member-task list must survive edits")
	}
	if edited.CommunityID != communityID {
		t.Fatalf("expected community %d, got %d", communityID, edited.CommunityID)
	}
}

package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCreateTaskNormalizesInput(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	task, err := CreateTask(CreateTaskInput{
		ID:           taskID,
		Type:         "social",
		Requirements: []string{"follow", "retweet"},
		Name:         "  Follow us  ",
		Reward:       50,
		Owner:        "alice",
		RelatedQuest: questID,
	}, fixedClock(createdAt))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if task.Name != "Follow us" {
		t.Fatalf("expected trimmed name, got %q", task.Name)
	}
	if task.TimesCompleted != 0 {
		t.Fatalf("expected zero completions, got %d", task.TimesCompleted)
	}
	if task.RelatedQuest != questID {
		t.Fatalf("expected back-reference %d, got %d", questID, task.RelatedQuest)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input CreateTaskInput
		err   error
	}{
		{
			name:  "invalid task id",
			input: CreateTaskInput{ID: 1, Name: "Task", Owner: "alice"},
		},
		{
			name:  "empty name",
			input: CreateTaskInput{ID: taskID, Name: " ", Owner: "alice"},
			err:   ErrTaskNameEmpty,
		},
		{
			name:  "empty owner",
			input: CreateTaskInput{ID: taskID, Name: "Task"},
			err:   ErrIdentityEmpty,
		},
		{
			name:  "invalid related quest",
			input: CreateTaskInput{ID: taskID, Name: "Task", Owner: "alice", RelatedQuest: 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateTask(tt.input, fixedClock(createdAt))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestTaskApplyEditPreservesCompletionCounters(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	task, err := CreateTask(CreateTaskInput{
		ID:    taskID,
		Name:  "Task",
		Owner: "alice",
	}, fixedClock(createdAt))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	task.TimesCompleted = 3
	task.CompletedAt = createdAt

	edited, err := task.ApplyEdit(EditTaskInput{
		Name:         "Task v2",
		Reward:       75,
		RelatedQuest: questID,
	}, fixedClock(createdAt.Add(time.Hour)))
	if err != nil {
		t.Fatalf("apply edit: %v", err)
	}

	if edited.TimesCompleted != 3 {
		t.Fatalf("completion counter must survive edits, got %d", edited.TimesCompleted)
	}
	if edited.Owner != "alice" {
		t.Fatalf("owner must be immutable, got %q", edited.Owner)
	}
	if edited.Reward != 75 || edited.RelatedQuest != questID {
		t.Fatal("expected reward and back-reference to update")
	}
}

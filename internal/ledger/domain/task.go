package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/questline/internal/platform/errors"
)

// ErrTaskNameEmpty indicates a missing task display name.
var ErrTaskNameEmpty = apperrors.New(apperrors.CodeTaskNameEmpty, "task name is required")

// Task is a unit of completable work carrying a reward. A task belongs to
// at most one quest via RelatedQuest; when non-zero, the referenced
// quest's member list must contain this task's id.
type Task struct {
	ID           ID
	Type         string
	Requirements []string
	Name         string
	Reward       uint64
	Description  string
	Owner        Identity
	RelatedQuest ID // zero when the task is unattached

	// Aggregate completion counters across all users.
	TimesCompleted uint64
	CompletedAt    time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateTaskInput describes the fields needed to create a task.
type CreateTaskInput struct {
	ID           ID
	Type         string
	Requirements []string
	Name         string
	Reward       uint64
	Description  string
	Owner        Identity
	RelatedQuest ID
}

// CreateTask validates input and builds a new task record. Attachment to
// the related quest is a separate integrity-engine step.
func CreateTask(input CreateTaskInput, now func() time.Time) (Task, error) {
	if now == nil {
		now = time.Now
	}
	if err := ValidateID(input.ID); err != nil {
		return Task{}, err
	}
	if !input.RelatedQuest.IsZero() {
		if err := ValidateID(input.RelatedQuest); err != nil {
			return Task{}, err
		}
	}
	owner, err := NormalizeIdentity(input.Owner)
	if err != nil {
		return Task{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Task{}, ErrTaskNameEmpty
	}

	created := now().UTC()
	return Task{
		ID:           input.ID,
		Type:         input.Type,
		Requirements: input.Requirements,
		Name:         name,
		Reward:       input.Reward,
		Description:  input.Description,
		Owner:        owner,
		RelatedQuest: input.RelatedQuest,
		CreatedAt:    created,
		UpdatedAt:    created,
	}, nil
}

// EditTaskInput describes the mutable task fields. Changing RelatedQuest
// triggers the integrity engine's reattach path.
type EditTaskInput struct {
	Type         string
	Requirements []string
	Name         string
	Reward       uint64
	Description  string
	RelatedQuest ID
}

// ApplyEdit validates input and returns the task with its mutable fields
// replaced. The back-reference is updated here; keeping the old and new
// quests' member lists in step is the integrity engine's job.
func (t Task) ApplyEdit(input EditTaskInput, now func() time.Time) (Task, error) {
	if now == nil {
		now = time.Now
	}
	if !input.RelatedQuest.IsZero() {
		if err := ValidateID(input.RelatedQuest); err != nil {
			return Task{}, err
		}
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Task{}, ErrTaskNameEmpty
	}

	t.Type = input.Type
	t.Requirements = input.Requirements
	t.Name = name
	t.Reward = input.Reward
	t.Description = input.Description
	t.RelatedQuest = input.RelatedQuest
	t.UpdatedAt = now().UTC()
	return t, nil
}

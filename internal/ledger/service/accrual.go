package service

import (
	"context"
	"math"
	"time"

	"github.com/louisbranch/questline/internal/ledger/domain"
	"github.com/louisbranch/questline/internal/ledger/storage"
	apperrors "github.com/louisbranch/questline/internal/platform/errors"
)

// Accrual is the task-completion scoring engine. Every submission is a
// side-effecting event: the per-user completion counter and the per-quest
// score both move on every call. Repeat submissions accrue reward again;
// the counter is a usage audit trail, not a dedup guard.
type Accrual struct {
	store storage.Store
	// taskScope is the shared partition task records live in.
	taskScope domain.Identity
	clock     func() time.Time
	newScoreID func() domain.ID
}

// AccrualOption configures the accrual engine.
type AccrualOption func(*Accrual)

// WithAccrualClock overrides the engine clock, for tests.
func WithAccrualClock(clock func() time.Time) AccrualOption {
	return func(e *Accrual) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithScoreIDGenerator overrides surrogate score-id generation, for tests.
func WithScoreIDGenerator(gen func() domain.ID) AccrualOption {
	return func(e *Accrual) {
		if gen != nil {
			e.newScoreID = gen
		}
	}
}

// NewAccrual creates the accrual engine over the given store.
func NewAccrual(store storage.Store, taskScope domain.Identity, opts ...AccrualOption) *Accrual {
	e := &Accrual{
		store:      store,
		taskScope:  taskScope,
		clock:      time.Now,
		newScoreID: domain.NewID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// addChecked adds two unsigned counters, rejecting overflow explicitly
// instead of wrapping.
func addChecked(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, apperrors.New(apperrors.CodeScoreOverflow, "unsigned accumulator overflow")
	}
	return a + b, nil
}

// Submit records one completion of a task by a user: the user's completion
// counter for the task moves, the user's score record for the task's quest
// accrues the reward, and the task's aggregate usage counter moves. All
// additions are validated before the first write so an overflow rejects
// the submission with nothing recorded.
func (e *Accrual) Submit(ctx context.Context, taskID domain.ID, user domain.Identity) (domain.ScoreRecord, error) {
	task, err := e.store.GetTask(ctx, e.taskScope, taskID)
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	if task.RelatedQuest.IsZero() {
		return domain.ScoreRecord{}, apperrors.WithMetadata(apperrors.CodeTaskNotAttached,
			"an unattached task cannot be submitted for reward",
			map[string]string{"task": taskID.String()})
	}

	now := e.clock().UTC()

	completion, err := e.store.GetCompletion(ctx, user, taskID)
	newCompletion := apperrors.IsCode(err, apperrors.CodeNotFound)
	if err != nil && !newCompletion {
		return domain.ScoreRecord{}, err
	}
	if newCompletion {
		completion = domain.TaskCompletion{User: user, TaskID: taskID}
	}

	score, err := e.store.GetScore(ctx, user, task.RelatedQuest, user)
	newScore := apperrors.IsCode(err, apperrors.CodeNotFound)
	if err != nil && !newScore {
		return domain.ScoreRecord{}, err
	}
	if newScore {
		score = domain.ScoreRecord{
			ScoreID:   e.newScoreID(),
			QuestID:   task.RelatedQuest,
			User:      user,
			CreatedAt: now,
		}
	}

	// Validate every accumulator before any write lands.
	counter, err := addChecked(completion.TimesCompleted, 1)
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	total, err := addChecked(score.Score, task.Reward)
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	aggregate, err := addChecked(task.TimesCompleted, 1)
	if err != nil {
		return domain.ScoreRecord{}, err
	}

	completion.TimesCompleted = counter
	completion.CompletedAt = now
	if err := e.store.PutCompletion(ctx, user, completion); err != nil {
		return domain.ScoreRecord{}, err
	}

	score.Score = total
	score.UpdatedAt = now
	if newScore {
		err = e.store.CreateScore(ctx, user, score)
	} else {
		err = e.store.UpdateScore(ctx, user, score)
	}
	if err != nil {
		return domain.ScoreRecord{}, err
	}

	task.TimesCompleted = aggregate
	task.CompletedAt = now
	if err := e.store.UpdateTask(ctx, e.taskScope, task); err != nil {
		return domain.ScoreRecord{}, err
	}

	return score, nil
}

// Correct is the administrative score correction: the only path allowed
// to move a score downward. The caller is expected to have passed the
// privileged gate; the correction itself is a plain overwrite.
func (e *Accrual) Correct(ctx context.Context, user domain.Identity, questID domain.ID, newScore uint64) (domain.ScoreRecord, error) {
	score, err := e.store.GetScore(ctx, user, questID, user)
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	score.Score = newScore
	score.UpdatedAt = e.clock().UTC()
	if err := e.store.UpdateScore(ctx, user, score); err != nil {
		return domain.ScoreRecord{}, err
	}
	return score, nil
}

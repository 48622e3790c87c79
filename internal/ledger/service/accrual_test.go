package service

import (
	"context"
	"math"
	"testing"

	"github.com/louisbranch/questline/internal/ledger/domain"
	apperrors "github.com/louisbranch/questline/internal/platform/errors"
	"github.com/louisbranch/questline/internal/testkit/ledgerfakes"
)

func newTestAccrual(store *ledgerfakes.Store) *Accrual {
	return NewAccrual(store, serviceIdentity,
		WithAccrualClock(testClock),
		WithScoreIDGenerator(func() domain.ID { return scoreID }))
}

func attachTask(t *testing.T, store *ledgerfakes.Store, taskID, questID domain.ID, owner domain.Identity) {
	t.Helper()
	engine := newTestIntegrity(store)
	if err := engine.Attach(context.Background(), taskID, questID, owner); err != nil {
		t.Fatalf("attach: %v", err)
	}
}

func TestSubmitCreatesScoreRecordLazily(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedQuest(t, store, questID, "alice")
	seedTask(t, store, taskID, "alice", 25)
	attachTask(t, store, taskID, questID, "alice")
	engine := newTestAccrual(store)

	record, err := engine.Submit(ctx, taskID, "carol")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if record.ScoreID != scoreID {
		t.Fatalf("expected surrogate id %d, got %d", scoreID, record.ScoreID)
	}
	if record.Score != 25 {
		t.Fatalf("expected score 25, got %d", record.Score)
	}
	if record.QuestID != questID || record.User != "carol" {
		t.Fatalf("unexpected natural key: quest=%d user=%q", record.QuestID, record.User)
	}

	completion, err := store.GetCompletion(ctx, "carol", taskID)
	if err != nil {
		t.Fatalf("get completion: %v", err)
	}
	if completion.TimesCompleted != 1 {
		t.Fatalf("expected completion counter 1, got %d", completion.TimesCompleted)
	}
}

// TestSubmitAccruesEveryTime pins the non-deduplicated accrual: the same
// task submitted twice by the same user accrues the reward twice. The
// completion counter is an audit trail, not a dedup guard.
func TestSubmitAccruesEveryTime(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedQuest(t, store, questID, "alice")
	seedTask(t, store, taskID, "alice", 25)
	attachTask(t, store, taskID, questID, "alice")
	engine := newTestAccrual(store)

	if _, err := engine.Submit(ctx, taskID, "carol"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	record, err := engine.Submit(ctx, taskID, "carol")
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if record.Score != 50 {
		t.Fatalf("expected score 2x reward = 50, got %d", record.Score)
	}
	completion, err := store.GetCompletion(ctx, "carol", taskID)
	if err != nil {
		t.Fatalf("get completion: %v", err)
	}
	if completion.TimesCompleted != 2 {
		t.Fatalf("expected completion counter 2, got %d", completion.TimesCompleted)
	}

	task, err := store.GetTask(ctx, serviceIdentity, taskID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.TimesCompleted != 2 {
		t.Fatalf("expected aggregate counter 2, got %d", task.TimesCompleted)
	}
}

func TestSubmitSeparateUsersKeepSeparateScores(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedQuest(t, store, questID, "alice")
	seedTask(t, store, taskID, "alice", 10)
	attachTask(t, store, taskID, questID, "alice")
	engine := newTestAccrual(store)

	if _, err := engine.Submit(ctx, taskID, "carol"); err != nil {
		t.Fatalf("carol submit: %v", err)
	}
	if _, err := engine.Submit(ctx, taskID, "dave"); err != nil {
		t.Fatalf("dave submit: %v", err)
	}

	carol, err := store.GetScore(ctx, "carol", questID, "carol")
	if err != nil {
		t.Fatalf("carol score: %v", err)
	}
	dave, err := store.GetScore(ctx, "dave", questID, "dave")
	if err != nil {
		t.Fatalf("dave score: %v", err)
	}
	if carol.Score != 10 || dave.Score != 10 {
		t.Fatalf("expected independent scores of 10, got %d and %d", carol.Score, dave.Score)
	}
}

func TestSubmitRejectsUnattachedTask(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedTask(t, store, taskID, "alice", 25)
	engine := newTestAccrual(store)

	_, err := engine.Submit(ctx, taskID, "carol")
	if !apperrors.IsCode(err, apperrors.CodeTaskNotAttached) {
		t.Fatalf("expected TASK_NOT_ATTACHED, got %v", err)
	}
	if _, err := store.GetCompletion(ctx, "carol", taskID); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatal("rejected submission must not record a completion")
	}
}

func TestSubmitRejectsMissingTask(t *testing.T) {
	store := ledgerfakes.NewStore()
	engine := newTestAccrual(store)

	_, err := engine.Submit(context.Background(), taskID, "carol")
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSubmitRejectsScoreOverflowWithoutWrites(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedQuest(t, store, questID, "alice")
	seedTask(t, store, taskID, "alice", 2)
	attachTask(t, store, taskID, questID, "alice")
	engine := newTestAccrual(store)

	// Pre-load a score one step below the ceiling.
	if err := store.CreateScore(ctx, "carol", domain.ScoreRecord{
		ScoreID: scoreID,
		QuestID: questID,
		User:    "carol",
		Score:   math.MaxUint64 - 1,
	}); err != nil {
		t.Fatalf("seed score: %v", err)
	}

	_, err := engine.Submit(ctx, taskID, "carol")
	if !apperrors.IsCode(err, apperrors.CodeScoreOverflow) {
		t.Fatalf("expected SCORE_OVERFLOW, got %v", err)
	}

	// Nothing may be recorded: no completion row, score unchanged.
	if _, err := store.GetCompletion(ctx, "carol", taskID); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatal("overflowed submission must not record a completion")
	}
	record, err := store.GetScore(ctx, "carol", questID, "carol")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if record.Score != math.MaxUint64-1 {
		t.Fatalf("score must be unchanged, got %d", record.Score)
	}
}

func TestCorrectAllowsLoweringScore(t *testing.T) {
	ctx := context.Background()
	store := ledgerfakes.NewStore()
	seedQuest(t, store, questID, "alice")
	seedTask(t, store, taskID, "alice", 25)
	attachTask(t, store, taskID, questID, "alice")
	engine := newTestAccrual(store)

	if _, err := engine.Submit(ctx, taskID, "carol"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	record, err := engine.Correct(ctx, "carol", questID, 5)
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if record.Score != 5 {
		t.Fatalf("expected corrected score 5, got %d", record.Score)
	}
}

// Package storage defines the partitioned keyed-table contract the ledger
// persists through.
//
// Every table is namespaced by an owner identity: lookups always target a
// specific identity's partition, and an id that only exists in another
// partition is a miss, not an error in the caller's reasoning. Each store
// call is an atomic single step; there is no transaction spanning calls.
package storage

import (
	"context"
	"time"

	"github.com/louisbranch/questline/internal/ledger/domain"
	apperrors "github.com/louisbranch/questline/internal/platform/errors"
)

// ErrNotFound indicates a requested persistence record is missing from the
// targeted partition. Callers use this to differentiate legitimate "no such
// entity" states from transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrAlreadyExists indicates a create collided with an existing record id
// inside the targeted partition.
var ErrAlreadyExists = apperrors.New(apperrors.CodeAlreadyExists, "record already exists")

// CommunityStore owns community records, partitioned by the owning identity.
type CommunityStore interface {
	CreateCommunity(ctx context.Context, scope domain.Identity, c domain.Community) error
	UpdateCommunity(ctx context.Context, scope domain.Identity, c domain.Community) error
	GetCommunity(ctx context.Context, scope domain.Identity, id domain.ID) (domain.Community, error)
}

// QuestStore owns quest records, partitioned by the owning identity.
type QuestStore interface {
	CreateQuest(ctx context.Context, scope domain.Identity, q domain.Quest) error
	UpdateQuest(ctx context.Context, scope domain.Identity, q domain.Quest) error
	GetQuest(ctx context.Context, scope domain.Identity, id domain.ID) (domain.Quest, error)
}

// TaskStore owns task records. Tasks live in the shared service partition
// so any quest owner can reference them; deletion is exposed because task
// erasure is part of the public surface.
type TaskStore interface {
	CreateTask(ctx context.Context, scope domain.Identity, t domain.Task) error
	UpdateTask(ctx context.Context, scope domain.Identity, t domain.Task) error
	GetTask(ctx context.Context, scope domain.Identity, id domain.ID) (domain.Task, error)
	DeleteTask(ctx context.Context, scope domain.Identity, id domain.ID) error
	// ListTasks scans every task in the partition. Used by integrity
	// reconciliation, not by the hot path.
	ListTasks(ctx context.Context, scope domain.Identity) ([]domain.Task, error)
}

// ScoreStore owns per-quest-per-user score records, partitioned by the
// record-owning user. The (quest, user) pair is the natural key.
type ScoreStore interface {
	CreateScore(ctx context.Context, scope domain.Identity, s domain.ScoreRecord) error
	UpdateScore(ctx context.Context, scope domain.Identity, s domain.ScoreRecord) error
	// GetScore fetches by the natural key.
	GetScore(ctx context.Context, scope domain.Identity, questID domain.ID, user domain.Identity) (domain.ScoreRecord, error)
	// GetScoreByID fetches by the surrogate score id.
	GetScoreByID(ctx context.Context, scope domain.Identity, scoreID domain.ID) (domain.ScoreRecord, error)
}

// CompletionStore owns per-user task-completion audit rows, partitioned by
// the submitting user.
type CompletionStore interface {
	PutCompletion(ctx context.Context, scope domain.Identity, c domain.TaskCompletion) error
	GetCompletion(ctx context.Context, scope domain.Identity, taskID domain.ID) (domain.TaskCompletion, error)
}

// TelemetryEvent captures operational observations emitted during ledger
// actions, including the explicit audit trail for deposit reversals.
type TelemetryEvent struct {
	Timestamp  time.Time
	EventName  string
	Severity   string
	Actor      string
	EntityID   string
	Attributes map[string]string
}

// TelemetryStore persists operational telemetry records for audits.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, evt TelemetryEvent) error
}

// Store aggregates every table the ledger reads and writes.
type Store interface {
	CommunityStore
	QuestStore
	TaskStore
	ScoreStore
	CompletionStore
}

package service

import (
	"context"
	"time"

	"github.com/louisbranch/questline/internal/ledger/domain"
	"github.com/louisbranch/questline/internal/ledger/storage"
	apperrors "github.com/louisbranch/questline/internal/platform/errors"
)

// AuthoritativeSide selects which end of the Quest-Task relation drives
// reconciliation when the two sides are found diverged.
type AuthoritativeSide int

const (
	// SideBackReference treats each task's RelatedQuest field as the
	// source of truth; quest member lists are derived from it.
	SideBackReference AuthoritativeSide = iota
	// SideMemberList treats the quest's member list as the source of
	// truth; task back-references are derived from it.
	SideMemberList
)

// Integrity maintains the bidirectional Quest-Task membership relation and
// the Community-Quest ownership constraint. Attach and detach keep both
// ends of the relation in step inside one logical operation; composite
// operations (reattach, delete) are sequences of such steps and carry the
// documented cross-step consistency risk.
type Integrity struct {
	store storage.Store
	// taskScope is the shared partition every task record lives in.
	taskScope domain.Identity
	side      AuthoritativeSide
	clock     func() time.Time
}

// IntegrityOption configures the integrity engine.
type IntegrityOption func(*Integrity)

// WithAuthoritativeSide selects the relation side Reconcile trusts.
func WithAuthoritativeSide(side AuthoritativeSide) IntegrityOption {
	return func(e *Integrity) {
		e.side = side
	}
}

// WithIntegrityClock overrides the engine clock, for tests.
func WithIntegrityClock(clock func() time.Time) IntegrityOption {
	return func(e *Integrity) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewIntegrity creates the integrity engine over the given store. taskScope
// names the shared partition that holds task records.
func NewIntegrity(store storage.Store, taskScope domain.Identity, opts ...IntegrityOption) *Integrity {
	e := &Integrity{
		store:     store,
		taskScope: taskScope,
		side:      SideBackReference,
		clock:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Attach links a task to a quest: the task id is appended to the quest's
// member list and the task's back-reference is set, as one logical step.
// A task already attached to a different quest is detached from it first.
// Quests are looked up in the actor's partition, so attaching to another
// identity's quest misses before any ownership question arises.
func (e *Integrity) Attach(ctx context.Context, taskID, questID domain.ID, actor domain.Identity) error {
	task, err := e.store.GetTask(ctx, e.taskScope, taskID)
	if err != nil {
		return err
	}
	quest, err := e.store.GetQuest(ctx, actor, questID)
	if err != nil {
		return err
	}

	if quest.HasTask(taskID) {
		return apperrors.WithMetadata(apperrors.CodeIntegrityAlreadyMember,
			"task is already a member of this quest",
			map[string]string{"task": taskID.String(), "quest": questID.String()})
	}

	// A prior relation is dissolved before the new one is formed.
	if !task.RelatedQuest.IsZero() && task.RelatedQuest != questID {
		if err := e.Detach(ctx, taskID, task.RelatedQuest, actor); err != nil {
			return err
		}
		task, err = e.store.GetTask(ctx, e.taskScope, taskID)
		if err != nil {
			return err
		}
	}

	now := e.clock().UTC()
	task.RelatedQuest = questID
	task.UpdatedAt = now
	quest.TaskIDs = append(quest.TaskIDs, taskID)
	quest.UpdatedAt = now

	// All validation has passed; both writes belong to the same logical
	// step. The back-reference lands first and the member list follows,
	// with a compensating rewrite if the second write fails.
	if err := e.store.UpdateTask(ctx, e.taskScope, task); err != nil {
		return err
	}
	if err := e.store.UpdateQuest(ctx, actor, quest); err != nil {
		task.RelatedQuest = 0
		if rollbackErr := e.store.UpdateTask(ctx, e.taskScope, task); rollbackErr != nil {
			return apperrors.Wrap(apperrors.CodeUnknown, "attach rollback failed", rollbackErr)
		}
		return err
	}
	return nil
}

// Detach removes a task from a quest's member list and clears the task's
// back-reference. Detaching a task that is not a member fails with an
// integrity violation and mutates nothing.
func (e *Integrity) Detach(ctx context.Context, taskID, questID domain.ID, actor domain.Identity) error {
	quest, err := e.store.GetQuest(ctx, actor, questID)
	if err != nil {
		return err
	}
	if !quest.HasTask(taskID) {
		return apperrors.WithMetadata(apperrors.CodeIntegrityNotMember,
			"task is not a member of this quest",
			map[string]string{"task": taskID.String(), "quest": questID.String()})
	}
	task, err := e.store.GetTask(ctx, e.taskScope, taskID)
	if err != nil {
		return err
	}

	now := e.clock().UTC()
	members := quest.TaskIDs[:0:0]
	for _, id := range quest.TaskIDs {
		if id != taskID {
			members = append(members, id)
		}
	}
	quest.TaskIDs = members
	quest.UpdatedAt = now
	task.RelatedQuest = 0
	task.UpdatedAt = now

	if err := e.store.UpdateQuest(ctx, actor, quest); err != nil {
		return err
	}
	return e.store.UpdateTask(ctx, e.taskScope, task)
}

// Reattach moves a task between quests when an edit changes its related
// quest: a detach from the old quest (when set) followed by an attach to
// the new one (when set). The two steps are sequential and NOT atomic; a
// failure after the detach leaves the task unattached.
func (e *Integrity) Reattach(ctx context.Context, taskID, oldQuestID, newQuestID domain.ID, actor domain.Identity) error {
	if oldQuestID == newQuestID {
		return nil
	}
	if !oldQuestID.IsZero() {
		if err := e.Detach(ctx, taskID, oldQuestID, actor); err != nil {
			return err
		}
	}
	if !newQuestID.IsZero() {
		return e.Attach(ctx, taskID, newQuestID, actor)
	}
	return nil
}

// DeleteTask erases a task record, first detaching it from its owning
// quest so no quest is left holding a dangling member id.
func (e *Integrity) DeleteTask(ctx context.Context, taskID domain.ID, actor domain.Identity) error {
	task, err := e.store.GetTask(ctx, e.taskScope, taskID)
	if err != nil {
		return err
	}
	if !task.RelatedQuest.IsZero() {
		if err := e.Detach(ctx, taskID, task.RelatedQuest, actor); err != nil {
			return err
		}
	}
	return e.store.DeleteTask(ctx, e.taskScope, taskID)
}

// CheckCommunityAffiliation enforces the Community-Quest ownership
// constraint at quest create/edit time: a non-zero community id must name
// an existing community whose recorded owner is the acting identity.
func (e *Integrity) CheckCommunityAffiliation(ctx context.Context, communityID domain.ID, actor domain.Identity) error {
	if communityID.IsZero() {
		return nil
	}
	community, err := e.store.GetCommunity(ctx, actor, communityID)
	if err != nil {
		return err
	}
	if community.Owner != actor {
		return apperrors.WithMetadata(apperrors.CodeIntegrityForeignQuest,
			"quests can only be affiliated with the actor's own community",
			map[string]string{"community": communityID.String(), "actor": string(actor)})
	}
	return nil
}

// ReconcileReport describes the repairs a Reconcile pass applied.
type ReconcileReport struct {
	QuestID domain.ID
	// AddedToList and RemovedFromList report member-list repairs when the
	// back-reference side is authoritative.
	AddedToList     []domain.ID
	RemovedFromList []domain.ID
	// RelinkedTasks and UnlinkedTasks report back-reference repairs when
	// the member list is authoritative.
	RelinkedTasks []domain.ID
	UnlinkedTasks []domain.ID
}

// Dirty reports whether the pass found anything to repair.
func (r ReconcileReport) Dirty() bool {
	return len(r.AddedToList) > 0 || len(r.RemovedFromList) > 0 ||
		len(r.RelinkedTasks) > 0 || len(r.UnlinkedTasks) > 0
}

// Reconcile audits the bidirectional relation for one quest and repairs
// any divergence according to the configured authoritative side. It exists
// for the half-applied states composite operations can leave behind.
func (e *Integrity) Reconcile(ctx context.Context, questID domain.ID, actor domain.Identity) (ReconcileReport, error) {
	report := ReconcileReport{QuestID: questID}

	quest, err := e.store.GetQuest(ctx, actor, questID)
	if err != nil {
		return report, err
	}
	tasks, err := e.store.ListTasks(ctx, e.taskScope)
	if err != nil {
		return report, err
	}

	referencing := make(map[domain.ID]bool)
	byID := make(map[domain.ID]domain.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
		if task.RelatedQuest == questID {
			referencing[task.ID] = true
		}
	}

	now := e.clock().UTC()

	switch e.side {
	case SideMemberList:
		for _, id := range quest.TaskIDs {
			task, ok := byID[id]
			if !ok || task.RelatedQuest == questID {
				continue
			}
			task.RelatedQuest = questID
			task.UpdatedAt = now
			if err := e.store.UpdateTask(ctx, e.taskScope, task); err != nil {
				return report, err
			}
			report.RelinkedTasks = append(report.RelinkedTasks, id)
		}
		for id := range referencing {
			if quest.HasTask(id) {
				continue
			}
			task := byID[id]
			task.RelatedQuest = 0
			task.UpdatedAt = now
			if err := e.store.UpdateTask(ctx, e.taskScope, task); err != nil {
				return report, err
			}
			report.UnlinkedTasks = append(report.UnlinkedTasks, id)
		}

	default: // SideBackReference
		var members []domain.ID
		for _, id := range quest.TaskIDs {
			if referencing[id] {
				members = append(members, id)
				delete(referencing, id)
			} else {
				report.RemovedFromList = append(report.RemovedFromList, id)
			}
		}
		for id := range referencing {
			members = append(members, id)
			report.AddedToList = append(report.AddedToList, id)
		}
		if report.Dirty() {
			quest.TaskIDs = members
			quest.UpdatedAt = now
			if err := e.store.UpdateQuest(ctx, actor, quest); err != nil {
				return report, err
			}
		}
	}

	return report, nil
}

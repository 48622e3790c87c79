package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/questline/internal/ledger/domain"
	"github.com/louisbranch/questline/internal/ledger/storage"
	"github.com/louisbranch/questline/internal/telemetry"
)

// tracerName identifies ledger spans in trace exports.
const tracerName = "github.com/louisbranch/questline/internal/ledger/service"

// Ledger is the external surface of the quest ledger. Every operation
// authorizes through the gate before reading any further state, then
// routes relation work through the integrity engine, scoring through the
// accrual engine, and deposits through the vault allocator.
//
// The host processes one action at a time; nothing here suspends or
// retries. A failed action is terminal and must be resubmitted.
type Ledger struct {
	store     storage.Store
	gate      *Gate
	integrity *Integrity
	accrual   *Accrual
	vault     *Vault
	emitter   *telemetry.Emitter
	tracer    trace.Tracer
	clock     func() time.Time

	// taskScope is the shared partition every task record lives in.
	taskScope domain.Identity

	reconcileSide AuthoritativeSide
	scoreIDGen    func() domain.ID
}

// LedgerOption configures the ledger facade.
type LedgerOption func(*Ledger)

// WithClock overrides the ledger clock, for tests. The engines share it.
func WithClock(clock func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithTelemetry attaches an operational telemetry emitter.
func WithTelemetry(emitter *telemetry.Emitter) LedgerOption {
	return func(l *Ledger) {
		l.emitter = emitter
	}
}

// WithReconcileSide selects the authoritative relation side used by
// integrity reconciliation.
func WithReconcileSide(side AuthoritativeSide) LedgerOption {
	return func(l *Ledger) {
		l.reconcileSide = side
	}
}

// WithScoreIDs overrides surrogate score-id generation, for tests.
func WithScoreIDs(gen func() domain.ID) LedgerOption {
	return func(l *Ledger) {
		if gen != nil {
			l.scoreIDGen = gen
		}
	}
}

// NewLedger wires the ledger over a store and an authorization oracle.
// serviceIdentity is the ledger's own account: it namespaces the shared
// task partition and is the second authorizer for privileged operations.
func NewLedger(store storage.Store, auth Authenticator, serviceIdentity domain.Identity, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:     store,
		gate:      NewGate(auth, serviceIdentity),
		tracer:    otel.Tracer(tracerName),
		clock:     time.Now,
		taskScope: serviceIdentity,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	// Engines are wired after options so they share the final clock.
	l.integrity = NewIntegrity(store, l.taskScope,
		WithAuthoritativeSide(l.reconcileSide), WithIntegrityClock(l.clock))
	accrualOpts := []AccrualOption{WithAccrualClock(l.clock)}
	if l.scoreIDGen != nil {
		accrualOpts = append(accrualOpts, WithScoreIDGenerator(l.scoreIDGen))
	}
	l.accrual = NewAccrual(store, l.taskScope, accrualOpts...)
	l.vault = NewVault(store, l.emitter)
	l.vault.clock = l.clock
	return l
}

// Integrity exposes the reconciliation surface of the integrity engine.
func (l *Ledger) Integrity() *Integrity {
	return l.integrity
}

func (l *Ledger) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, name)
}

// CreateCommunity registers a new community owned by the acting identity.
func (l *Ledger) CreateCommunity(ctx context.Context, input domain.CreateCommunityInput) (domain.Community, error) {
	ctx, span := l.span(ctx, "ledger.CreateCommunity")
	defer span.End()

	if err := l.gate.Actor(ctx, input.Owner); err != nil {
		return domain.Community{}, err
	}
	community, err := domain.CreateCommunity(input, l.clock)
	if err != nil {
		return domain.Community{}, err
	}
	if err := l.store.CreateCommunity(ctx, community.Owner, community); err != nil {
		return domain.Community{}, err
	}
	return community, nil
}

// EditCommunity replaces a community's mutable fields. Only the recorded
// owner may edit; a rejected edit leaves the record untouched.
func (l *Ledger) EditCommunity(ctx context.Context, communityID domain.ID, actor domain.Identity, input domain.EditCommunityInput) (domain.Community, error) {
	ctx, span := l.span(ctx, "ledger.EditCommunity")
	defer span.End()

	if err := l.gate.Actor(ctx, actor); err != nil {
		return domain.Community{}, err
	}
	community, err := l.store.GetCommunity(ctx, actor, communityID)
	if err != nil {
		return domain.Community{}, err
	}
	if err := l.gate.Owner(community.Owner, actor); err != nil {
		return domain.Community{}, err
	}
	edited, err := community.ApplyEdit(input, l.clock)
	if err != nil {
		return domain.Community{}, err
	}
	if err := l.store.UpdateCommunity(ctx, actor, edited); err != nil {
		return domain.Community{}, err
	}
	return edited, nil
}

// CreateQuest registers a new quest. A non-zero community id must name an
// existing community owned by the acting identity.
func (l *Ledger) CreateQuest(ctx context.Context, input domain.CreateQuestInput) (domain.Quest, error) {
	ctx, span := l.span(ctx, "ledger.CreateQuest")
	defer span.End()

	if err := l.gate.Actor(ctx, input.Owner); err != nil {
		return domain.Quest{}, err
	}
	quest, err := domain.CreateQuest(input, l.clock)
	if err != nil {
		return domain.Quest{}, err
	}
	if err := l.integrity.CheckCommunityAffiliation(ctx, quest.CommunityID, quest.Owner); err != nil {
		return domain.Quest{}, err
	}
	if err := l.store.CreateQuest(ctx, quest.Owner, quest); err != nil {
		return domain.Quest{}, err
	}
	return quest, nil
}

// EditQuest replaces a quest's mutable fields, re-validating the end-time
// floor and any community affiliation change.
func (l *Ledger) EditQuest(ctx context.Context, questID domain.ID, actor domain.Identity, input domain.EditQuestInput) (domain.Quest, error) {
	ctx, span := l.span(ctx, "ledger.EditQuest")
	defer span.End()

	if err := l.gate.Actor(ctx, actor); err != nil {
		return domain.Quest{}, err
	}
	quest, err := l.store.GetQuest(ctx, actor, questID)
	if err != nil {
		return domain.Quest{}, err
	}
	if err := l.gate.Owner(quest.Owner, actor); err != nil {
		return domain.Quest{}, err
	}
	if err := l.integrity.CheckCommunityAffiliation(ctx, input.CommunityID, actor); err != nil {
		return domain.Quest{}, err
	}
	edited, err := quest.ApplyEdit(input, l.clock)
	if err != nil {
		return domain.Quest{}, err
	}
	if err := l.store.UpdateQuest(ctx, actor, edited); err != nil {
		return domain.Quest{}, err
	}
	return edited, nil
}

// CreateTask registers a new task owned by the acting identity. When a
// related quest is supplied the task is attached to it in the same call;
// the attach is a follow-up step composed in-process, so a failure there
// leaves the task created but unattached.
func (l *Ledger) CreateTask(ctx context.Context, input domain.CreateTaskInput) (domain.Task, error) {
	ctx, span := l.span(ctx, "ledger.CreateTask")
	defer span.End()

	if err := l.gate.Actor(ctx, input.Owner); err != nil {
		return domain.Task{}, err
	}
	task, err := domain.CreateTask(input, l.clock)
	if err != nil {
		return domain.Task{}, err
	}

	relatedQuest := task.RelatedQuest
	if !relatedQuest.IsZero() {
		// The quest must exist before the task record is created.
		if _, err := l.store.GetQuest(ctx, task.Owner, relatedQuest); err != nil {
			return domain.Task{}, err
		}
		task.RelatedQuest = 0
	}

	if err := l.store.CreateTask(ctx, l.taskScope, task); err != nil {
		return domain.Task{}, err
	}

	if !relatedQuest.IsZero() {
		if err := l.integrity.Attach(ctx, task.ID, relatedQuest, task.Owner); err != nil {
			return domain.Task{}, err
		}
		task, err = l.store.GetTask(ctx, l.taskScope, task.ID)
		if err != nil {
			return domain.Task{}, err
		}
	}
	return task, nil
}

// EditTask replaces a task's mutable fields. A change to the related
// quest runs the integrity engine's reattach path: detach from the old
// quest, then attach to the new one, as two sequential steps.
func (l *Ledger) EditTask(ctx context.Context, taskID domain.ID, actor domain.Identity, input domain.EditTaskInput) (domain.Task, error) {
	ctx, span := l.span(ctx, "ledger.EditTask")
	defer span.End()

	if err := l.gate.Actor(ctx, actor); err != nil {
		return domain.Task{}, err
	}
	task, err := l.store.GetTask(ctx, l.taskScope, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := l.gate.Owner(task.Owner, actor); err != nil {
		return domain.Task{}, err
	}

	previousQuest := task.RelatedQuest
	edited, err := task.ApplyEdit(input, l.clock)
	if err != nil {
		return domain.Task{}, err
	}

	// Persist the non-relation fields with the back-reference unchanged;
	// the reattach below moves both sides of the relation together.
	edited.RelatedQuest = previousQuest
	if err := l.store.UpdateTask(ctx, l.taskScope, edited); err != nil {
		return domain.Task{}, err
	}

	if previousQuest != input.RelatedQuest {
		if err := l.integrity.Reattach(ctx, taskID, previousQuest, input.RelatedQuest, actor); err != nil {
			return domain.Task{}, err
		}
		edited, err = l.store.GetTask(ctx, l.taskScope, taskID)
		if err != nil {
			return domain.Task{}, err
		}
	}
	return edited, nil
}

// DeleteTask erases a task, detaching it from its owning quest first so
// the member list never holds a dangling id.
func (l *Ledger) DeleteTask(ctx context.Context, taskID domain.ID, actor domain.Identity) error {
	ctx, span := l.span(ctx, "ledger.DeleteTask")
	defer span.End()

	if err := l.gate.Actor(ctx, actor); err != nil {
		return err
	}
	task, err := l.store.GetTask(ctx, l.taskScope, taskID)
	if err != nil {
		return err
	}
	if err := l.gate.Owner(task.Owner, actor); err != nil {
		return err
	}
	return l.integrity.DeleteTask(ctx, taskID, actor)
}

// AttachTask links a task into a quest's member list.
func (l *Ledger) AttachTask(ctx context.Context, taskID, questID domain.ID, actor domain.Identity) error {
	ctx, span := l.span(ctx, "ledger.AttachTask")
	defer span.End()

	if err := l.gate.Actor(ctx, actor); err != nil {
		return err
	}
	return l.integrity.Attach(ctx, taskID, questID, actor)
}

// DetachTask removes a task from a quest's member list.
func (l *Ledger) DetachTask(ctx context.Context, taskID, questID domain.ID, actor domain.Identity) error {
	ctx, span := l.span(ctx, "ledger.DetachTask")
	defer span.End()

	if err := l.gate.Actor(ctx, actor); err != nil {
		return err
	}
	return l.integrity.Detach(ctx, taskID, questID, actor)
}

// SubmitTask records one task completion for a user and accrues the
// task's reward onto the user's score for the related quest. Submission
// is privileged: both the user and the ledger's service identity must
// authorize.
func (l *Ledger) SubmitTask(ctx context.Context, taskID domain.ID, user domain.Identity) (domain.ScoreRecord, error) {
	ctx, span := l.span(ctx, "ledger.SubmitTask")
	defer span.End()

	if err := l.gate.Privileged(ctx, user); err != nil {
		return domain.ScoreRecord{}, err
	}
	return l.accrual.Submit(ctx, taskID, user)
}

// CreateScoreInput describes an explicitly created score record.
type CreateScoreInput struct {
	ScoreID domain.ID
	QuestID domain.ID
	// QuestOwner names the partition the referenced quest lives in.
	QuestOwner domain.Identity
	User       domain.Identity
	Score      uint64
}

// CreateScoreRecord creates a score record ahead of any submission, for
// hosts that pre-provision scores. Privileged, and the referenced quest
// must exist.
func (l *Ledger) CreateScoreRecord(ctx context.Context, input CreateScoreInput) (domain.ScoreRecord, error) {
	ctx, span := l.span(ctx, "ledger.CreateScoreRecord")
	defer span.End()

	if err := l.gate.Privileged(ctx, input.User); err != nil {
		return domain.ScoreRecord{}, err
	}
	if err := domain.ValidateID(input.ScoreID); err != nil {
		return domain.ScoreRecord{}, err
	}
	if _, err := l.store.GetQuest(ctx, input.QuestOwner, input.QuestID); err != nil {
		return domain.ScoreRecord{}, err
	}

	now := l.clock().UTC()
	record := domain.ScoreRecord{
		ScoreID:   input.ScoreID,
		QuestID:   input.QuestID,
		User:      input.User,
		Score:     input.Score,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.store.CreateScore(ctx, input.User, record); err != nil {
		return domain.ScoreRecord{}, err
	}
	return record, nil
}

// CorrectScore is the administrative score correction, the only path
// allowed to move a score downward. Privileged and audited.
func (l *Ledger) CorrectScore(ctx context.Context, user domain.Identity, questID domain.ID, newScore uint64) (domain.ScoreRecord, error) {
	ctx, span := l.span(ctx, "ledger.CorrectScore")
	defer span.End()

	if err := l.gate.Privileged(ctx, user); err != nil {
		return domain.ScoreRecord{}, err
	}
	record, err := l.accrual.Correct(ctx, user, questID, newScore)
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	err = l.emitter.Emit(ctx, storage.TelemetryEvent{
		EventName: "score.correction",
		Severity:  string(telemetry.SeverityWarn),
		Actor:     string(user),
		EntityID:  questID.String(),
	})
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	return record, nil
}

// Subscribe marks a user's score record as following a community and
// bumps the community's follower count. The community owner names the
// partition the community record lives in.
func (l *Ledger) Subscribe(ctx context.Context, actor domain.Identity, communityOwner domain.Identity, communityID, scoreID domain.ID) error {
	ctx, span := l.span(ctx, "ledger.Subscribe")
	defer span.End()

	if err := l.gate.Actor(ctx, actor); err != nil {
		return err
	}
	record, err := l.store.GetScoreByID(ctx, actor, scoreID)
	if err != nil {
		return err
	}
	community, err := l.store.GetCommunity(ctx, communityOwner, communityID)
	if err != nil {
		return err
	}

	now := l.clock().UTC()
	record.CommunityID = communityID
	record.Subscribed = true
	record.UpdatedAt = now
	if err := l.store.UpdateScore(ctx, actor, record); err != nil {
		return err
	}

	community.Followers++
	community.UpdatedAt = now
	return l.store.UpdateCommunity(ctx, communityOwner, community)
}

// FungibleDeposit is the collaborator callback for fungible-token
// transfer notifications.
func (l *Ledger) FungibleDeposit(ctx context.Context, from domain.Identity, amount domain.TokenBalance, memo string) error {
	ctx, span := l.span(ctx, "ledger.FungibleDeposit")
	defer span.End()

	return l.vault.FungibleDeposit(ctx, from, amount, memo)
}

// NFTDeposit is the collaborator callback for non-fungible-asset transfer
// notifications.
func (l *Ledger) NFTDeposit(ctx context.Context, from domain.Identity, assetIDs []string, memo string) error {
	ctx, span := l.span(ctx, "ledger.NFTDeposit")
	defer span.End()

	return l.vault.NFTDeposit(ctx, from, assetIDs, memo)
}

// ReverseFungibleDeposit is the audited compensating entry for a
// misapplied fungible deposit. Privileged.
func (l *Ledger) ReverseFungibleDeposit(ctx context.Context, owner domain.Identity, communityID domain.ID, restored domain.TokenBalance) error {
	ctx, span := l.span(ctx, "ledger.ReverseFungibleDeposit")
	defer span.End()

	if err := l.gate.Privileged(ctx, owner); err != nil {
		return err
	}
	return l.vault.ReverseFungible(ctx, owner, communityID, restored)
}

// ReverseNFTDeposit is the audited compensating entry for a misapplied
// NFT deposit. Privileged.
func (l *Ledger) ReverseNFTDeposit(ctx context.Context, owner domain.Identity, communityID domain.ID, assetIDs []string) error {
	ctx, span := l.span(ctx, "ledger.ReverseNFTDeposit")
	defer span.End()

	if err := l.gate.Privileged(ctx, owner); err != nil {
		return err
	}
	return l.vault.ReverseNFT(ctx, owner, communityID, assetIDs)
}

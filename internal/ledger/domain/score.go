package domain

import "time"

// ScoreRecord is a user's cumulative reward total for one quest. Records
// are keyed by the (quest, user) pair and created lazily on the first
// completion; the score only decreases through an explicit administrative
// correction.
type ScoreRecord struct {
	ScoreID     ID // surrogate key, kept for external callers
	QuestID     ID
	User        Identity
	Score       uint64
	CommunityID ID
	Subscribed  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskCompletion is the per-user audit row for one task: how many times
// the user submitted it and when the last submission landed. It is a
// usage counter, not a dedup guard.
type TaskCompletion struct {
	User           Identity
	TaskID         ID
	TimesCompleted uint64
	CompletedAt    time.Time
}

// Package ledgerfakes provides lightweight in-memory store fakes for tests.
// The fakes mirror the partitioning rules of the real backends: every key
// is prefixed with the scope identity, so cross-partition lookups miss.
package ledgerfakes

import (
	"context"

	"github.com/louisbranch/questline/internal/ledger/domain"
	"github.com/louisbranch/questline/internal/ledger/storage"
)

func scopedKey(scope domain.Identity, id domain.ID) string {
	return string(scope) + ":" + id.String()
}

// Store is an in-memory implementation of storage.Store.
type Store struct {
	Communities  map[string]domain.Community
	Quests       map[string]domain.Quest
	Tasks        map[string]domain.Task
	Scores       map[string]domain.ScoreRecord
	Completions  map[string]domain.TaskCompletion
	TelemetryLog []storage.TelemetryEvent
}

// NewStore constructs a Store fake with initialized state maps.
func NewStore() *Store {
	return &Store{
		Communities: make(map[string]domain.Community),
		Quests:      make(map[string]domain.Quest),
		Tasks:       make(map[string]domain.Task),
		Scores:      make(map[string]domain.ScoreRecord),
		Completions: make(map[string]domain.TaskCompletion),
	}
}

func (s *Store) CreateCommunity(_ context.Context, scope domain.Identity, c domain.Community) error {
	key := scopedKey(scope, c.ID)
	if _, ok := s.Communities[key]; ok {
		return storage.ErrAlreadyExists
	}
	s.Communities[key] = c
	return nil
}

func (s *Store) UpdateCommunity(_ context.Context, scope domain.Identity, c domain.Community) error {
	key := scopedKey(scope, c.ID)
	if _, ok := s.Communities[key]; !ok {
		return storage.ErrNotFound
	}
	s.Communities[key] = c
	return nil
}

func (s *Store) GetCommunity(_ context.Context, scope domain.Identity, id domain.ID) (domain.Community, error) {
	c, ok := s.Communities[scopedKey(scope, id)]
	if !ok {
		return domain.Community{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) CreateQuest(_ context.Context, scope domain.Identity, q domain.Quest) error {
	key := scopedKey(scope, q.ID)
	if _, ok := s.Quests[key]; ok {
		return storage.ErrAlreadyExists
	}
	s.Quests[key] = q
	return nil
}

func (s *Store) UpdateQuest(_ context.Context, scope domain.Identity, q domain.Quest) error {
	key := scopedKey(scope, q.ID)
	if _, ok := s.Quests[key]; !ok {
		return storage.ErrNotFound
	}
	s.Quests[key] = q
	return nil
}

func (s *Store) GetQuest(_ context.Context, scope domain.Identity, id domain.ID) (domain.Quest, error) {
	q, ok := s.Quests[scopedKey(scope, id)]
	if !ok {
		return domain.Quest{}, storage.ErrNotFound
	}
	return q, nil
}

func (s *Store) CreateTask(_ context.Context, scope domain.Identity, t domain.Task) error {
	key := scopedKey(scope, t.ID)
	if _, ok := s.Tasks[key]; ok {
		return storage.ErrAlreadyExists
	}
	s.Tasks[key] = t
	return nil
}

func (s *Store) UpdateTask(_ context.Context, scope domain.Identity, t domain.Task) error {
	key := scopedKey(scope, t.ID)
	if _, ok := s.Tasks[key]; !ok {
		return storage.ErrNotFound
	}
	s.Tasks[key] = t
	return nil
}

func (s *Store) GetTask(_ context.Context, scope domain.Identity, id domain.ID) (domain.Task, error) {
	t, ok := s.Tasks[scopedKey(scope, id)]
	if !ok {
		return domain.Task{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) DeleteTask(_ context.Context, scope domain.Identity, id domain.ID) error {
	key := scopedKey(scope, id)
	if _, ok := s.Tasks[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.Tasks, key)
	return nil
}

func (s *Store) ListTasks(_ context.Context, scope domain.Identity) ([]domain.Task, error) {
	var tasks []domain.Task
	prefix := string(scope) + ":"
	for key, t := range s.Tasks {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func scoreKey(scope domain.Identity, questID domain.ID, user domain.Identity) string {
	return string(scope) + ":" + questID.String() + ":" + string(user)
}

func (s *Store) CreateScore(_ context.Context, scope domain.Identity, rec domain.ScoreRecord) error {
	key := scoreKey(scope, rec.QuestID, rec.User)
	if _, ok := s.Scores[key]; ok {
		return storage.ErrAlreadyExists
	}
	s.Scores[key] = rec
	return nil
}

func (s *Store) UpdateScore(_ context.Context, scope domain.Identity, rec domain.ScoreRecord) error {
	key := scoreKey(scope, rec.QuestID, rec.User)
	if _, ok := s.Scores[key]; !ok {
		return storage.ErrNotFound
	}
	s.Scores[key] = rec
	return nil
}

func (s *Store) GetScore(_ context.Context, scope domain.Identity, questID domain.ID, user domain.Identity) (domain.ScoreRecord, error) {
	rec, ok := s.Scores[scoreKey(scope, questID, user)]
	if !ok {
		return domain.ScoreRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

func (s *Store) GetScoreByID(_ context.Context, scope domain.Identity, scoreID domain.ID) (domain.ScoreRecord, error) {
	prefix := string(scope) + ":"
	for key, rec := range s.Scores {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix && rec.ScoreID == scoreID {
			return rec, nil
		}
	}
	return domain.ScoreRecord{}, storage.ErrNotFound
}

func (s *Store) PutCompletion(_ context.Context, scope domain.Identity, c domain.TaskCompletion) error {
	s.Completions[scopedKey(scope, c.TaskID)] = c
	return nil
}

func (s *Store) GetCompletion(_ context.Context, scope domain.Identity, taskID domain.ID) (domain.TaskCompletion, error) {
	c, ok := s.Completions[scopedKey(scope, taskID)]
	if !ok {
		return domain.TaskCompletion{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) AppendTelemetryEvent(_ context.Context, evt storage.TelemetryEvent) error {
	s.TelemetryLog = append(s.TelemetryLog, evt)
	return nil
}

// Authenticator is a configurable authorization-oracle fake. Identities in
// Rejected fail authentication; everything else passes.
type Authenticator struct {
	Rejected map[domain.Identity]bool
}

// NewAuthenticator constructs an Authenticator that accepts everyone.
func NewAuthenticator() *Authenticator {
	return &Authenticator{Rejected: make(map[domain.Identity]bool)}
}

func (a *Authenticator) Authenticate(_ context.Context, identity domain.Identity) error {
	if a.Rejected[identity] {
		return errAuthRejected
	}
	return nil
}

var errAuthRejected = errRejected{}

type errRejected struct{}

func (errRejected) Error() string { return "identity rejected by oracle" }

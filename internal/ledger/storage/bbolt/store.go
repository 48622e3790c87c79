// Package bbolt provides a BoltDB-backed ledger store.
//
// Each table maps to one bucket. Keys are prefixed with the owning
// partition identity, so a lookup against the wrong partition is a plain
// miss even when the id exists elsewhere.
package bbolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/louisbranch/questline/internal/ledger/domain"
	"github.com/louisbranch/questline/internal/ledger/storage"
)

const (
	communityBucket  = "community"
	questBucket      = "quest"
	taskBucket       = "task"
	scoreBucket      = "score"
	scoreIndexBucket = "score_idx"
	completionBucket = "completion"
	telemetryBucket  = "telemetry"
)

// Store provides a BoltDB-backed ledger store.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{
			communityBucket, questBucket, taskBucket,
			scoreBucket, scoreIndexBucket, completionBucket, telemetryBucket,
		} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// recordKey builds a partition-prefixed record key. The "/" separator is
// safe because ids never contain it.
func recordKey(scope domain.Identity, id domain.ID) []byte {
	return []byte(string(scope) + "/" + id.String())
}

func scoreIndexKey(scope domain.Identity, questID domain.ID, user domain.Identity) []byte {
	return []byte(string(scope) + "/" + questID.String() + "/" + string(user))
}

func (s *Store) create(ctx context.Context, bucketName string, key []byte, record any) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", bucketName, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("%s bucket is missing", bucketName)
		}
		if bucket.Get(key) != nil {
			return storage.ErrAlreadyExists
		}
		return bucket.Put(key, payload)
	})
}

func (s *Store) update(ctx context.Context, bucketName string, key []byte, record any) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", bucketName, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("%s bucket is missing", bucketName)
		}
		if bucket.Get(key) == nil {
			return storage.ErrNotFound
		}
		return bucket.Put(key, payload)
	})
}

func (s *Store) get(ctx context.Context, bucketName string, key []byte, record any) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("%s bucket is missing", bucketName)
		}
		payload := bucket.Get(key)
		if payload == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(payload, record); err != nil {
			return fmt.Errorf("unmarshal %s record: %w", bucketName, err)
		}
		return nil
	})
}

// CreateCommunity persists a new community record.
func (s *Store) CreateCommunity(ctx context.Context, scope domain.Identity, c domain.Community) error {
	return s.create(ctx, communityBucket, recordKey(scope, c.ID), c)
}

// UpdateCommunity replaces an existing community record.
func (s *Store) UpdateCommunity(ctx context.Context, scope domain.Identity, c domain.Community) error {
	return s.update(ctx, communityBucket, recordKey(scope, c.ID), c)
}

// GetCommunity fetches a community record from the given partition.
func (s *Store) GetCommunity(ctx context.Context, scope domain.Identity, id domain.ID) (domain.Community, error) {
	var c domain.Community
	if err := s.get(ctx, communityBucket, recordKey(scope, id), &c); err != nil {
		return domain.Community{}, err
	}
	return c, nil
}

// CreateQuest persists a new quest record.
func (s *Store) CreateQuest(ctx context.Context, scope domain.Identity, q domain.Quest) error {
	return s.create(ctx, questBucket, recordKey(scope, q.ID), q)
}

// UpdateQuest replaces an existing quest record.
func (s *Store) UpdateQuest(ctx context.Context, scope domain.Identity, q domain.Quest) error {
	return s.update(ctx, questBucket, recordKey(scope, q.ID), q)
}

// GetQuest fetches a quest record from the given partition.
func (s *Store) GetQuest(ctx context.Context, scope domain.Identity, id domain.ID) (domain.Quest, error) {
	var q domain.Quest
	if err := s.get(ctx, questBucket, recordKey(scope, id), &q); err != nil {
		return domain.Quest{}, err
	}
	return q, nil
}

// CreateTask persists a new task record.
func (s *Store) CreateTask(ctx context.Context, scope domain.Identity, t domain.Task) error {
	return s.create(ctx, taskBucket, recordKey(scope, t.ID), t)
}

// UpdateTask replaces an existing task record.
func (s *Store) UpdateTask(ctx context.Context, scope domain.Identity, t domain.Task) error {
	return s.update(ctx, taskBucket, recordKey(scope, t.ID), t)
}

// GetTask fetches a task record from the given partition.
func (s *Store) GetTask(ctx context.Context, scope domain.Identity, id domain.ID) (domain.Task, error) {
	var t domain.Task
	if err := s.get(ctx, taskBucket, recordKey(scope, id), &t); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DeleteTask erases a task record. Deleting a missing record reports
// not-found so callers can distinguish erasure from a no-op.
func (s *Store) DeleteTask(ctx context.Context, scope domain.Identity, id domain.ID) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	key := recordKey(scope, id)
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(taskBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket is missing", taskBucket)
		}
		if bucket.Get(key) == nil {
			return storage.ErrNotFound
		}
		return bucket.Delete(key)
	})
}

// ListTasks scans every task record in the given partition.
func (s *Store) ListTasks(ctx context.Context, scope domain.Identity) ([]domain.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	prefix := []byte(string(scope) + "/")
	var tasks []domain.Task
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(taskBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket is missing", taskBucket)
		}
		cursor := bucket.Cursor()
		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			var t domain.Task
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("unmarshal %s record: %w", taskBucket, err)
			}
			tasks = append(tasks, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateScore persists a new score record and its natural-key index entry.
func (s *Store) CreateScore(ctx context.Context, scope domain.Identity, record domain.ScoreRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", scoreBucket, err)
	}
	key := recordKey(scope, record.ScoreID)
	indexKey := scoreIndexKey(scope, record.QuestID, record.User)
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scoreBucket))
		index := tx.Bucket([]byte(scoreIndexBucket))
		if bucket == nil || index == nil {
			return fmt.Errorf("%s bucket is missing", scoreBucket)
		}
		if bucket.Get(key) != nil || index.Get(indexKey) != nil {
			return storage.ErrAlreadyExists
		}
		if err := bucket.Put(key, payload); err != nil {
			return err
		}
		return index.Put(indexKey, []byte(record.ScoreID.String()))
	})
}

// UpdateScore replaces an existing score record. The natural key is
// immutable, so the index entry is left untouched.
func (s *Store) UpdateScore(ctx context.Context, scope domain.Identity, record domain.ScoreRecord) error {
	return s.update(ctx, scoreBucket, recordKey(scope, record.ScoreID), record)
}

// GetScore fetches a score record by its (quest, user) natural key.
func (s *Store) GetScore(ctx context.Context, scope domain.Identity, questID domain.ID, user domain.Identity) (domain.ScoreRecord, error) {
	if err := s.ready(ctx); err != nil {
		return domain.ScoreRecord{}, err
	}
	var record domain.ScoreRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		index := tx.Bucket([]byte(scoreIndexBucket))
		bucket := tx.Bucket([]byte(scoreBucket))
		if index == nil || bucket == nil {
			return fmt.Errorf("%s bucket is missing", scoreBucket)
		}
		scoreID := index.Get(scoreIndexKey(scope, questID, user))
		if scoreID == nil {
			return storage.ErrNotFound
		}
		payload := bucket.Get([]byte(string(scope) + "/" + string(scoreID)))
		if payload == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(payload, &record); err != nil {
			return fmt.Errorf("unmarshal %s record: %w", scoreBucket, err)
		}
		return nil
	})
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	return record, nil
}

// GetScoreByID fetches a score record by its surrogate id.
func (s *Store) GetScoreByID(ctx context.Context, scope domain.Identity, scoreID domain.ID) (domain.ScoreRecord, error) {
	var record domain.ScoreRecord
	if err := s.get(ctx, scoreBucket, recordKey(scope, scoreID), &record); err != nil {
		return domain.ScoreRecord{}, err
	}
	return record, nil
}

// PutCompletion upserts a per-user completion audit row.
func (s *Store) PutCompletion(ctx context.Context, scope domain.Identity, c domain.TaskCompletion) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", completionBucket, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(completionBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket is missing", completionBucket)
		}
		return bucket.Put(recordKey(scope, c.TaskID), payload)
	})
}

// GetCompletion fetches a user's completion audit row for one task.
func (s *Store) GetCompletion(ctx context.Context, scope domain.Identity, taskID domain.ID) (domain.TaskCompletion, error) {
	var c domain.TaskCompletion
	if err := s.get(ctx, completionBucket, recordKey(scope, taskID), &c); err != nil {
		return domain.TaskCompletion{}, err
	}
	return c, nil
}

// AppendTelemetryEvent appends an operational telemetry record under a
// monotonically increasing sequence key.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", telemetryBucket, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(telemetryBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket is missing", telemetryBucket)
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("telemetry sequence: %w", err)
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, payload)
	})
}

var (
	_ storage.Store          = (*Store)(nil)
	_ storage.TelemetryStore = (*Store)(nil)
)

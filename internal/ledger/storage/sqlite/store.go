// Package sqlite provides a SQLite-backed ledger store.
//
// Every table carries a scope column naming the owning partition; the
// partition is part of each primary key, so the same id can exist
// independently under different identities.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/louisbranch/questline/internal/ledger/domain"
	"github.com/louisbranch/questline/internal/ledger/storage"
	"github.com/louisbranch/questline/internal/ledger/storage/sqlite/migrations"
	"github.com/louisbranch/questline/internal/platform/storage/sqlitemigrate"
)

// Store persists ledger state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite ledger store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// idToText renders an id column value. The zero id maps to the empty
// string so "unattached" round-trips.
func idToText(id domain.ID) string {
	if id.IsZero() {
		return ""
	}
	return id.String()
}

func idFromText(value string) (domain.ID, error) {
	if value == "" {
		return 0, nil
	}
	return domain.ParseID(value)
}

func encodeJSON(value any) (string, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(payload), nil
}

func decodeJSON(payload string, value any) error {
	if strings.TrimSpace(payload) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(payload), value); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// CreateCommunity inserts one community record.
func (s *Store) CreateCommunity(ctx context.Context, scope domain.Identity, c domain.Community) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	banners, err := encodeJSON(c.Banners)
	if err != nil {
		return err
	}
	questIDs, err := encodeJSON(c.QuestIDs)
	if err != nil {
		return err
	}
	nfts, err := encodeJSON(c.NFTs)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO communities (
		   scope, id, name, avatar, owner, score, followers,
		   banners, quest_ids, token_amount, token_symbol, nfts,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(scope),
		c.ID.String(),
		c.Name,
		c.Avatar,
		string(c.Owner),
		int64(c.Score),
		int64(c.Followers),
		banners,
		questIDs,
		int64(c.TokenBalance.Amount),
		c.TokenBalance.Symbol,
		nfts,
		toMillis(c.CreatedAt),
		toMillis(c.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create community: %w", err)
	}
	return nil
}

// UpdateCommunity replaces one community record.
func (s *Store) UpdateCommunity(ctx context.Context, scope domain.Identity, c domain.Community) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	banners, err := encodeJSON(c.Banners)
	if err != nil {
		return err
	}
	questIDs, err := encodeJSON(c.QuestIDs)
	if err != nil {
		return err
	}
	nfts, err := encodeJSON(c.NFTs)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE communities
		    SET name = ?, avatar = ?, owner = ?, score = ?, followers = ?,
		        banners = ?, quest_ids = ?, token_amount = ?, token_symbol = ?,
		        nfts = ?, created_at = ?, updated_at = ?
		  WHERE scope = ? AND id = ?`,
		c.Name,
		c.Avatar,
		string(c.Owner),
		int64(c.Score),
		int64(c.Followers),
		banners,
		questIDs,
		int64(c.TokenBalance.Amount),
		c.TokenBalance.Symbol,
		nfts,
		toMillis(c.CreatedAt),
		toMillis(c.UpdatedAt),
		string(scope),
		c.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update community: %w", err)
	}
	return requireRowChanged(result, "update community")
}

// GetCommunity returns one community by partition and id.
func (s *Store) GetCommunity(ctx context.Context, scope domain.Identity, id domain.ID) (domain.Community, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Community{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, avatar, owner, score, followers,
		        banners, quest_ids, token_amount, token_symbol, nfts,
		        created_at, updated_at
		   FROM communities
		  WHERE scope = ? AND id = ?`,
		string(scope),
		id.String(),
	)

	var c domain.Community
	var idText, owner, banners, questIDs, nfts string
	var score, followers, tokenAmount, createdAt, updatedAt int64
	err := row.Scan(
		&idText, &c.Name, &c.Avatar, &owner, &score, &followers,
		&banners, &questIDs, &tokenAmount, &c.TokenBalance.Symbol, &nfts,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Community{}, storage.ErrNotFound
		}
		return domain.Community{}, fmt.Errorf("get community: %w", err)
	}

	if c.ID, err = domain.ParseID(idText); err != nil {
		return domain.Community{}, fmt.Errorf("get community: %w", err)
	}
	if err := decodeJSON(banners, &c.Banners); err != nil {
		return domain.Community{}, err
	}
	if err := decodeJSON(questIDs, &c.QuestIDs); err != nil {
		return domain.Community{}, err
	}
	if err := decodeJSON(nfts, &c.NFTs); err != nil {
		return domain.Community{}, err
	}
	c.Owner = domain.Identity(owner)
	c.Score = uint64(score)
	c.Followers = uint64(followers)
	c.TokenBalance.Amount = uint64(tokenAmount)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

// CreateQuest inserts one quest record.
func (s *Store) CreateQuest(ctx context.Context, scope domain.Identity, q domain.Quest) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	taskIDs, err := encodeJSON(q.TaskIDs)
	if err != nil {
		return err
	}
	nfts, err := encodeJSON(q.NFTs)
	if err != nil {
		return err
	}
	tokens, err := encodeJSON(q.Tokens)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO quests (
		   scope, id, name, avatar, ends_at, owner, community_id,
		   task_ids, nfts, tokens, whitelists, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(scope),
		q.ID.String(),
		q.Name,
		q.Avatar,
		toMillis(q.EndsAt),
		string(q.Owner),
		idToText(q.CommunityID),
		taskIDs,
		nfts,
		tokens,
		int64(q.Whitelists),
		toMillis(q.CreatedAt),
		toMillis(q.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create quest: %w", err)
	}
	return nil
}

// UpdateQuest replaces one quest record.
func (s *Store) UpdateQuest(ctx context.Context, scope domain.Identity, q domain.Quest) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	taskIDs, err := encodeJSON(q.TaskIDs)
	if err != nil {
		return err
	}
	nfts, err := encodeJSON(q.NFTs)
	if err != nil {
		return err
	}
	tokens, err := encodeJSON(q.Tokens)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE quests
		    SET name = ?, avatar = ?, ends_at = ?, owner = ?, community_id = ?,
		        task_ids = ?, nfts = ?, tokens = ?, whitelists = ?,
		        created_at = ?, updated_at = ?
		  WHERE scope = ? AND id = ?`,
		q.Name,
		q.Avatar,
		toMillis(q.EndsAt),
		string(q.Owner),
		idToText(q.CommunityID),
		taskIDs,
		nfts,
		tokens,
		int64(q.Whitelists),
		toMillis(q.CreatedAt),
		toMillis(q.UpdatedAt),
		string(scope),
		q.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update quest: %w", err)
	}
	return requireRowChanged(result, "update quest")
}

// GetQuest returns one quest by partition and id.
func (s *Store) GetQuest(ctx context.Context, scope domain.Identity, id domain.ID) (domain.Quest, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Quest{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, avatar, ends_at, owner, community_id,
		        task_ids, nfts, tokens, whitelists, created_at, updated_at
		   FROM quests
		  WHERE scope = ? AND id = ?`,
		string(scope),
		id.String(),
	)
	return scanQuest(row.Scan)
}

func scanQuest(scan func(...any) error) (domain.Quest, error) {
	var q domain.Quest
	var idText, owner, communityID, taskIDs, nfts, tokens string
	var endsAt, whitelists, createdAt, updatedAt int64
	err := scan(
		&idText, &q.Name, &q.Avatar, &endsAt, &owner, &communityID,
		&taskIDs, &nfts, &tokens, &whitelists, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Quest{}, storage.ErrNotFound
		}
		return domain.Quest{}, fmt.Errorf("get quest: %w", err)
	}

	if q.ID, err = domain.ParseID(idText); err != nil {
		return domain.Quest{}, fmt.Errorf("get quest: %w", err)
	}
	if q.CommunityID, err = idFromText(communityID); err != nil {
		return domain.Quest{}, fmt.Errorf("get quest: %w", err)
	}
	if err := decodeJSON(taskIDs, &q.TaskIDs); err != nil {
		return domain.Quest{}, err
	}
	if err := decodeJSON(nfts, &q.NFTs); err != nil {
		return domain.Quest{}, err
	}
	if err := decodeJSON(tokens, &q.Tokens); err != nil {
		return domain.Quest{}, err
	}
	q.Owner = domain.Identity(owner)
	q.EndsAt = fromMillis(endsAt)
	q.Whitelists = uint64(whitelists)
	q.CreatedAt = fromMillis(createdAt)
	q.UpdatedAt = fromMillis(updatedAt)
	return q, nil
}

// CreateTask inserts one task record.
func (s *Store) CreateTask(ctx context.Context, scope domain.Identity, t domain.Task) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	requirements, err := encodeJSON(t.Requirements)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO tasks (
		   scope, id, type, requirements, name, reward, description, owner,
		   related_quest, times_completed, completed_at, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(scope),
		t.ID.String(),
		t.Type,
		requirements,
		t.Name,
		int64(t.Reward),
		t.Description,
		string(t.Owner),
		idToText(t.RelatedQuest),
		int64(t.TimesCompleted),
		toMillis(t.CompletedAt),
		toMillis(t.CreatedAt),
		toMillis(t.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// UpdateTask replaces one task record.
func (s *Store) UpdateTask(ctx context.Context, scope domain.Identity, t domain.Task) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	requirements, err := encodeJSON(t.Requirements)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE tasks
		    SET type = ?, requirements = ?, name = ?, reward = ?, description = ?,
		        owner = ?, related_quest = ?, times_completed = ?, completed_at = ?,
		        created_at = ?, updated_at = ?
		  WHERE scope = ? AND id = ?`,
		t.Type,
		requirements,
		t.Name,
		int64(t.Reward),
		t.Description,
		string(t.Owner),
		idToText(t.RelatedQuest),
		int64(t.TimesCompleted),
		toMillis(t.CompletedAt),
		toMillis(t.CreatedAt),
		toMillis(t.UpdatedAt),
		string(scope),
		t.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireRowChanged(result, "update task")
}

// GetTask returns one task by partition and id.
func (s *Store) GetTask(ctx context.Context, scope domain.Identity, id domain.ID) (domain.Task, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Task{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, type, requirements, name, reward, description, owner,
		        related_quest, times_completed, completed_at, created_at, updated_at
		   FROM tasks
		  WHERE scope = ? AND id = ?`,
		string(scope),
		id.String(),
	)
	return scanTask(row.Scan)
}

func scanTask(scan func(...any) error) (domain.Task, error) {
	var t domain.Task
	var idText, requirements, owner, relatedQuest string
	var reward, timesCompleted, completedAt, createdAt, updatedAt int64
	err := scan(
		&idText, &t.Type, &requirements, &t.Name, &reward, &t.Description, &owner,
		&relatedQuest, &timesCompleted, &completedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, storage.ErrNotFound
		}
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}

	if t.ID, err = domain.ParseID(idText); err != nil {
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	if t.RelatedQuest, err = idFromText(relatedQuest); err != nil {
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	if err := decodeJSON(requirements, &t.Requirements); err != nil {
		return domain.Task{}, err
	}
	t.Owner = domain.Identity(owner)
	t.Reward = uint64(reward)
	t.TimesCompleted = uint64(timesCompleted)
	t.CompletedAt = fromMillis(completedAt)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}

// DeleteTask erases one task record.
func (s *Store) DeleteTask(ctx context.Context, scope domain.Identity, id domain.ID) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM tasks WHERE scope = ? AND id = ?`,
		string(scope),
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireRowChanged(result, "delete task")
}

// ListTasks returns every task record in one partition.
func (s *Store) ListTasks(ctx context.Context, scope domain.Identity) ([]domain.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, type, requirements, name, reward, description, owner,
		        related_quest, times_completed, completed_at, created_at, updated_at
		   FROM tasks
		  WHERE scope = ?
		  ORDER BY id ASC`,
		string(scope),
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// CreateScore inserts one score record.
func (s *Store) CreateScore(ctx context.Context, scope domain.Identity, record domain.ScoreRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO scores (
		   scope, score_id, quest_id, user, score, community_id, subscribed,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(scope),
		record.ScoreID.String(),
		record.QuestID.String(),
		string(record.User),
		int64(record.Score),
		idToText(record.CommunityID),
		boolToInt(record.Subscribed),
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create score: %w", err)
	}
	return nil
}

// UpdateScore replaces one score record by its surrogate id.
func (s *Store) UpdateScore(ctx context.Context, scope domain.Identity, record domain.ScoreRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE scores
		    SET quest_id = ?, user = ?, score = ?, community_id = ?,
		        subscribed = ?, created_at = ?, updated_at = ?
		  WHERE scope = ? AND score_id = ?`,
		record.QuestID.String(),
		string(record.User),
		int64(record.Score),
		idToText(record.CommunityID),
		boolToInt(record.Subscribed),
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
		string(scope),
		record.ScoreID.String(),
	)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	return requireRowChanged(result, "update score")
}

// GetScore returns one score record by its (quest, user) natural key.
func (s *Store) GetScore(ctx context.Context, scope domain.Identity, questID domain.ID, user domain.Identity) (domain.ScoreRecord, error) {
	if err := s.ready(ctx); err != nil {
		return domain.ScoreRecord{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT score_id, quest_id, user, score, community_id, subscribed,
		        created_at, updated_at
		   FROM scores
		  WHERE scope = ? AND quest_id = ? AND user = ?`,
		string(scope),
		questID.String(),
		string(user),
	)
	return scanScore(row.Scan)
}

// GetScoreByID returns one score record by its surrogate id.
func (s *Store) GetScoreByID(ctx context.Context, scope domain.Identity, scoreID domain.ID) (domain.ScoreRecord, error) {
	if err := s.ready(ctx); err != nil {
		return domain.ScoreRecord{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT score_id, quest_id, user, score, community_id, subscribed,
		        created_at, updated_at
		   FROM scores
		  WHERE scope = ? AND score_id = ?`,
		string(scope),
		scoreID.String(),
	)
	return scanScore(row.Scan)
}

func scanScore(scan func(...any) error) (domain.ScoreRecord, error) {
	var record domain.ScoreRecord
	var scoreID, questID, user, communityID string
	var score, subscribed, createdAt, updatedAt int64
	err := scan(
		&scoreID, &questID, &user, &score, &communityID, &subscribed,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ScoreRecord{}, storage.ErrNotFound
		}
		return domain.ScoreRecord{}, fmt.Errorf("get score: %w", err)
	}

	if record.ScoreID, err = domain.ParseID(scoreID); err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("get score: %w", err)
	}
	if record.QuestID, err = domain.ParseID(questID); err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("get score: %w", err)
	}
	if record.CommunityID, err = idFromText(communityID); err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("get score: %w", err)
	}
	record.User = domain.Identity(user)
	record.Score = uint64(score)
	record.Subscribed = subscribed != 0
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

// PutCompletion upserts one completion audit row.
func (s *Store) PutCompletion(ctx context.Context, scope domain.Identity, c domain.TaskCompletion) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO completions (scope, task_id, user, times_completed, completed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (scope, task_id) DO UPDATE
		    SET user = excluded.user,
		        times_completed = excluded.times_completed,
		        completed_at = excluded.completed_at`,
		string(scope),
		c.TaskID.String(),
		string(c.User),
		int64(c.TimesCompleted),
		toMillis(c.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("put completion: %w", err)
	}
	return nil
}

// GetCompletion returns one completion audit row.
func (s *Store) GetCompletion(ctx context.Context, scope domain.Identity, taskID domain.ID) (domain.TaskCompletion, error) {
	if err := s.ready(ctx); err != nil {
		return domain.TaskCompletion{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT task_id, user, times_completed, completed_at
		   FROM completions
		  WHERE scope = ? AND task_id = ?`,
		string(scope),
		taskID.String(),
	)

	var c domain.TaskCompletion
	var taskIDText, user string
	var timesCompleted, completedAt int64
	err := row.Scan(&taskIDText, &user, &timesCompleted, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TaskCompletion{}, storage.ErrNotFound
		}
		return domain.TaskCompletion{}, fmt.Errorf("get completion: %w", err)
	}

	if c.TaskID, err = domain.ParseID(taskIDText); err != nil {
		return domain.TaskCompletion{}, fmt.Errorf("get completion: %w", err)
	}
	c.User = domain.Identity(user)
	c.TimesCompleted = uint64(timesCompleted)
	c.CompletedAt = fromMillis(completedAt)
	return c, nil
}

// AppendTelemetryEvent inserts one telemetry record.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	attributes, err := encodeJSON(evt.Attributes)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO telemetry_events (ts, event_name, severity, actor, entity_id, attributes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		toMillis(evt.Timestamp),
		evt.EventName,
		evt.Severity,
		evt.Actor,
		evt.EntityID,
		attributes,
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}

func requireRowChanged(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var (
	_ storage.Store          = (*Store)(nil)
	_ storage.TelemetryStore = (*Store)(nil)
)

package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/store"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "ga"

// Store implements store.AccountStore, store.TaskStore, and
// store.CascadeDeleter on Redis.
//
// Layout under prefix p:
//
//	p:acct:<id>          hash {email, data}
//	p:acct:<id>:tokens   list of {"token": ...} records
//	p:acct:<id>:tasks    set of task ids
//	p:email:<email>      account id
//	p:task:<id>          task record
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// accountRecord is the persisted form of an account. Unlike account.Account
// it carries the password digest.
type accountRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Age          int       `json:"age"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// New returns a Store using prefix, or DefaultPrefix when prefix is empty.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) accountKey(id string) string {
	return s.prefix + ":acct:" + id
}

func (s *Store) tokensKey(id string) string {
	return s.prefix + ":acct:" + id + ":tokens"
}

func (s *Store) tasksKey(ownerID string) string {
	return s.prefix + ":acct:" + ownerID + ":tasks"
}

func (s *Store) emailPrefix() string {
	return s.prefix + ":email:"
}

func (s *Store) emailKey(email string) string {
	return s.emailPrefix() + email
}

func (s *Store) taskPrefix() string {
	return s.prefix + ":task:"
}

func (s *Store) taskKey(id string) string {
	return s.taskPrefix() + id
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

func encodeAccount(a *account.Account) ([]byte, error) {
	return json.Marshal(accountRecord{
		ID:           a.ID,
		Name:         a.Name,
		Age:          a.Age,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	})
}

// Create stores a new account and claims its email atomically. Tokens on a
// are ignored; new accounts start with an empty list.
func (s *Store) Create(ctx context.Context, a *account.Account) error {
	data, err := encodeAccount(a)
	if err != nil {
		return err
	}

	status, err := createAccountLua.Run(ctx, s.redis,
		[]string{s.emailKey(a.Email), s.accountKey(a.ID)},
		a.ID, a.Email, data,
	).Int64()
	if err != nil {
		return unavailable(err)
	}
	if status == statusDuplicate {
		return store.ErrDuplicateEmail
	}
	return nil
}

// GetByID loads an account and its token list.
func (s *Store) GetByID(ctx context.Context, id string) (*account.Account, error) {
	pipe := s.redis.Pipeline()
	dataCmd := pipe.HGet(ctx, s.accountKey(id), "data")
	tokensCmd := pipe.LRange(ctx, s.tokensKey(id), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable(err)
	}

	data, err := dataCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable(err)
	}

	var rec accountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", id, err)
	}

	rawTokens, err := tokensCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable(err)
	}
	tokens := make([]account.TokenRecord, 0, len(rawTokens))
	for _, raw := range rawTokens {
		var tr account.TokenRecord
		if err := json.Unmarshal([]byte(raw), &tr); err != nil {
			return nil, fmt.Errorf("decode token record: %w", err)
		}
		tokens = append(tokens, tr)
	}

	return &account.Account{
		ID:           rec.ID,
		Name:         rec.Name,
		Age:          rec.Age,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		Tokens:       tokens,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

// GetByEmail resolves the email index and loads the account.
func (s *Store) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return s.GetByID(ctx, id)
}

// Update rewrites the account record and moves the email index when the
// email changed. The token list is not touched.
func (s *Store) Update(ctx context.Context, a *account.Account) error {
	data, err := encodeAccount(a)
	if err != nil {
		return err
	}

	status, err := updateAccountLua.Run(ctx, s.redis,
		[]string{s.accountKey(a.ID)},
		a.ID, a.Email, data, s.emailPrefix(),
	).Int64()
	if err != nil {
		return unavailable(err)
	}
	switch status {
	case statusNotFound:
		return store.ErrNotFound
	case statusDuplicate:
		return store.ErrDuplicateEmail
	}
	return nil
}

// Delete removes the account, its token list, and its email index entry.
// Tasks are not touched; see DeleteAccountCascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	status, err := deleteAccountLua.Run(ctx, s.redis,
		[]string{s.accountKey(id), s.tokensKey(id)},
		s.emailPrefix(),
	).Int64()
	if err != nil {
		return unavailable(err)
	}
	if status == statusNotFound {
		return store.ErrNotFound
	}
	return nil
}

// AppendToken pushes rec onto the account's token list.
func (s *Store) AppendToken(ctx context.Context, id string, rec account.TokenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	status, err := appendTokenLua.Run(ctx, s.redis,
		[]string{s.accountKey(id), s.tokensKey(id)},
		data,
	).Int64()
	if err != nil {
		return unavailable(err)
	}
	if status == statusNotFound {
		return store.ErrNotFound
	}
	return nil
}

// RemoveToken drops every record for token. Removing an absent token is a no-op.
func (s *Store) RemoveToken(ctx context.Context, id string, token string) error {
	data, err := json.Marshal(account.TokenRecord{Token: token})
	if err != nil {
		return err
	}
	if err := s.redis.LRem(ctx, s.tokensKey(id), 0, data).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// ClearTokens removes the whole token list.
func (s *Store) ClearTokens(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.tokensKey(id)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// HasToken reports whether token is on the account's list.
func (s *Store) HasToken(ctx context.Context, id string, token string) (bool, error) {
	raw, err := s.redis.LRange(ctx, s.tokensKey(id), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, unavailable(err)
	}
	for _, item := range raw {
		var tr account.TokenRecord
		if err := json.Unmarshal([]byte(item), &tr); err != nil {
			continue
		}
		if tr.Token == token {
			return true, nil
		}
	}
	return false, nil
}

// CreateTask stores t and links it to its owner. The owner must exist.
func (s *Store) CreateTask(ctx context.Context, t *store.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	status, err := createTaskLua.Run(ctx, s.redis,
		[]string{s.accountKey(t.OwnerID), s.taskKey(t.ID), s.tasksKey(t.OwnerID)},
		t.ID, data,
	).Int64()
	if err != nil {
		return unavailable(err)
	}
	if status == statusNotFound {
		return store.ErrOwnerNotFound
	}
	return nil
}

// ListTasks returns the owner's tasks ordered by ID.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]store.Task, error) {
	ids, err := s.redis.SMembers(ctx, s.tasksKey(ownerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []store.Task{}, nil
		}
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return []store.Task{}, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.taskKey(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	tasks := make([]store.Task, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var t store.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// DeleteTask removes one task owned by ownerID.
func (s *Store) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	status, err := deleteTaskLua.Run(ctx, s.redis,
		[]string{s.taskKey(taskID), s.tasksKey(ownerID)},
		taskID,
	).Int64()
	if err != nil {
		return unavailable(err)
	}
	if status == statusNotFound {
		return store.ErrNotFound
	}
	return nil
}

// DeleteByOwner removes every task of ownerID in one script call.
func (s *Store) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	n, err := deleteTasksByOwnerLua.Run(ctx, s.redis,
		[]string{s.tasksKey(ownerID)},
		s.taskPrefix(),
	).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// DeleteAccountCascade removes the account, its tokens, its email index
// entry, and all of its tasks in one atomic script.
func (s *Store) DeleteAccountCascade(ctx context.Context, id string) (int64, error) {
	n, err := cascadeDeleteLua.Run(ctx, s.redis,
		[]string{s.accountKey(id), s.tokensKey(id), s.tasksKey(id)},
		s.emailPrefix(), s.taskPrefix(),
	).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	if n < 0 {
		return 0, store.ErrNotFound
	}
	return n, nil
}

// Ping checks Redis availability and returns the round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), unavailable(err)
	}
	return time.Since(start), nil
}

var (
	_ store.Backend        = (*Store)(nil)
	_ store.CascadeDeleter = (*Store)(nil)
)

package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	accountsCollection = "accounts"
	tasksCollection    = "tasks"
)

// Store implements the store contracts on MongoDB. Tokens are embedded in
// the account document as an ordered array of {token} records.
//
// CreateTask and DeleteAccountCascade use multi-document transactions and
// therefore need a replica set or sharded cluster.
type Store struct {
	client   *mongo.Client
	accounts *mongo.Collection
	tasks    *mongo.Collection
}

type accountDoc struct {
	ID           string     `bson:"_id"`
	Name         string     `bson:"name"`
	Age          int        `bson:"age"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"password_hash"`
	Tokens       []tokenDoc `bson:"tokens"`
	TaskSeq      int64      `bson:"task_seq"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

type tokenDoc struct {
	Token string `bson:"token"`
}

type taskDoc struct {
	ID          string    `bson:"_id"`
	Owner       string    `bson:"owner"`
	Description string    `bson:"description"`
	Completed   bool      `bson:"completed"`
	CreatedAt   time.Time `bson:"created_at"`
}

// New returns a Store on db. Call EnsureIndexes before first use.
func New(db *mongo.Database) *Store {
	return &Store{
		client:   db.Client(),
		accounts: db.Collection(accountsCollection),
		tasks:    db.Collection(tasksCollection),
	}
}

// EnsureIndexes creates the unique email index and the task owner index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("accounts_email_unique"),
	})
	if err != nil {
		return wrap(err)
	}
	_, err = s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("tasks_owner"),
	})
	return wrap(err)
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}

func toAccount(d accountDoc) *account.Account {
	tokens := make([]account.TokenRecord, 0, len(d.Tokens))
	for _, t := range d.Tokens {
		tokens = append(tokens, account.TokenRecord{Token: t.Token})
	}
	return &account.Account{
		ID:           d.ID,
		Name:         d.Name,
		Age:          d.Age,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Tokens:       tokens,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// Create inserts a new account document with an empty token array.
func (s *Store) Create(ctx context.Context, a *account.Account) error {
	_, err := s.accounts.InsertOne(ctx, accountDoc{
		ID:           a.ID,
		Name:         a.Name,
		Age:          a.Age,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Tokens:       []tokenDoc{},
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateEmail
		}
		return wrap(err)
	}
	return nil
}

// GetByID loads an account document.
func (s *Store) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetByEmail loads an account by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *Store) findOne(ctx context.Context, filter bson.D) (*account.Account, error) {
	var doc accountDoc
	if err := s.accounts.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, wrap(err)
	}
	return toAccount(doc), nil
}

// Update sets the profile fields and digest; the token array is untouched.
func (s *Store) Update(ctx context.Context, a *account.Account) error {
	res, err := s.accounts.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: a.ID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "name", Value: a.Name},
			{Key: "age", Value: a.Age},
			{Key: "email", Value: a.Email},
			{Key: "password_hash", Value: a.PasswordHash},
			{Key: "updated_at", Value: a.UpdatedAt},
		}}},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateEmail
		}
		return wrap(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete removes the account document only. Tasks are not touched.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.accounts.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrap(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AppendToken pushes rec onto the embedded token array.
func (s *Store) AppendToken(ctx context.Context, id string, rec account.TokenRecord) error {
	res, err := s.accounts.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "tokens", Value: tokenDoc{Token: rec.Token}}}}},
	)
	if err != nil {
		return wrap(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RemoveToken pulls every record for token; absent tokens are a no-op.
func (s *Store) RemoveToken(ctx context.Context, id string, token string) error {
	_, err := s.accounts.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "tokens", Value: bson.D{{Key: "token", Value: token}}}}}},
	)
	return wrap(err)
}

// ClearTokens empties the token array.
func (s *Store) ClearTokens(ctx context.Context, id string) error {
	_, err := s.accounts.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "tokens", Value: []tokenDoc{}}}}},
	)
	return wrap(err)
}

// HasToken reports whether token is in the account's array.
func (s *Store) HasToken(ctx context.Context, id string, token string) (bool, error) {
	n, err := s.accounts.CountDocuments(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "tokens.token", Value: token},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, wrap(err)
	}
	return n > 0, nil
}

// CreateTask bumps the owner's task sequence and inserts t in one
// transaction, so a concurrent cascade delete conflicts instead of leaving
// an orphan.
func (s *Store) CreateTask(ctx context.Context, t *store.Task) error {
	return s.withTransaction(ctx, func(ctx context.Context) error {
		res, err := s.accounts.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: t.OwnerID}},
			bson.D{{Key: "$inc", Value: bson.D{{Key: "task_seq", Value: 1}}}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return store.ErrOwnerNotFound
		}
		_, err = s.tasks.InsertOne(ctx, taskDoc{
			ID:          t.ID,
			Owner:       t.OwnerID,
			Description: t.Description,
			Completed:   t.Completed,
			CreatedAt:   t.CreatedAt,
		})
		return err
	})
}

// ListTasks returns the owner's tasks ordered by ID.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]store.Task, error) {
	cur, err := s.tasks.Find(ctx,
		bson.D{{Key: "owner", Value: ownerID}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, wrap(err)
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap(err)
	}

	tasks := make([]store.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, store.Task{
			ID:          d.ID,
			OwnerID:     d.Owner,
			Description: d.Description,
			Completed:   d.Completed,
			CreatedAt:   d.CreatedAt.UTC(),
		})
	}
	return tasks, nil
}

// DeleteTask removes one task owned by ownerID.
func (s *Store) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	res, err := s.tasks.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: taskID},
		{Key: "owner", Value: ownerID},
	})
	if err != nil {
		return wrap(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteByOwner removes all tasks of ownerID.
func (s *Store) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.tasks.DeleteMany(ctx, bson.D{{Key: "owner", Value: ownerID}})
	if err != nil {
		return 0, wrap(err)
	}
	return res.DeletedCount, nil
}

// DeleteAccountCascade removes the account document and all of its tasks in
// one multi-document transaction.
func (s *Store) DeleteAccountCascade(ctx context.Context, id string) (int64, error) {
	var removed int64
	err := s.withTransaction(ctx, func(ctx context.Context) error {
		res, err := s.accounts.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return store.ErrNotFound
		}
		tasks, err := s.tasks.DeleteMany(ctx, bson.D{{Key: "owner", Value: id}})
		if err != nil {
			return err
		}
		removed = tasks.DeletedCount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return wrap(err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrOwnerNotFound) {
			return err
		}
		return wrap(err)
	}
	return nil
}

// Ping checks the primary and reports the latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.client.Ping(ctx, nil); err != nil {
		return time.Since(start), wrap(err)
	}
	return time.Since(start), nil
}

var (
	_ store.Backend        = (*Store)(nil)
	_ store.CascadeDeleter = (*Store)(nil)
)

package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store implements the store contracts on PostgreSQL.
//
// Email uniqueness is a unique index. Tasks reference accounts without ON
// DELETE CASCADE, so Delete fails while an account still owns tasks;
// DeleteAccountCascade removes both in one transaction.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store on pool. Run Migrate before first use.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// wrap tags driver and connectivity failures with store.ErrUnavailable.
// Server-side SQL errors pass through unchanged.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

const accountColumns = `id, name, age, email, password_hash, created_at, updated_at`

// Create inserts a new account row.
func (s *Store) Create(ctx context.Context, a *account.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Name, a.Age, a.Email, a.PasswordHash, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return store.ErrDuplicateEmail
		}
		return wrap(err)
	}
	return nil
}

// GetByID loads an account and its tokens in issue order.
func (s *Store) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return s.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetByEmail loads an account by its normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	return s.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (s *Store) get(ctx context.Context, query string, arg string) (*account.Account, error) {
	var a account.Account
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Name, &a.Age, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrap(err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()

	rows, err := s.pool.Query(ctx,
		`SELECT token FROM account_tokens WHERE account_id = $1 ORDER BY seq`, a.ID)
	if err != nil {
		return nil, wrap(err)
	}
	tokens, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (account.TokenRecord, error) {
		var rec account.TokenRecord
		err := row.Scan(&rec.Token)
		return rec, err
	})
	if err != nil {
		return nil, wrap(err)
	}
	a.Tokens = tokens
	return &a, nil
}

// Update rewrites the profile fields and digest.
func (s *Store) Update(ctx context.Context, a *account.Account) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET name = $2, age = $3, email = $4, password_hash = $5, updated_at = $6
		WHERE id = $1`,
		a.ID, a.Name, a.Age, a.Email, a.PasswordHash, a.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return store.ErrDuplicateEmail
		}
		return wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete removes the account row; tokens go with it. It fails with a
// foreign key violation while tasks still reference the account.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AppendToken records a newly issued token.
func (s *Store) AppendToken(ctx context.Context, id string, rec account.TokenRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO account_tokens (account_id, token) VALUES ($1, $2)`, id, rec.Token)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return store.ErrNotFound
		}
		return wrap(err)
	}
	return nil
}

// RemoveToken deletes every row for token; absent tokens are a no-op.
func (s *Store) RemoveToken(ctx context.Context, id string, token string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM account_tokens WHERE account_id = $1 AND token = $2`, id, token)
	return wrap(err)
}

// ClearTokens deletes all tokens of the account.
func (s *Store) ClearTokens(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM account_tokens WHERE account_id = $1`, id)
	return wrap(err)
}

// HasToken reports whether token is active for the account.
func (s *Store) HasToken(ctx context.Context, id string, token string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM account_tokens WHERE account_id = $1 AND token = $2)`,
		id, token,
	).Scan(&ok)
	if err != nil {
		return false, wrap(err)
	}
	return ok, nil
}

// CreateTask inserts t; the owner must exist.
func (s *Store) CreateTask(ctx context.Context, t *store.Task) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tasks (id, owner_id, description, completed, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.OwnerID, t.Description, t.Completed, t.CreatedAt,
	)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return store.ErrOwnerNotFound
		}
		return wrap(err)
	}
	return nil
}

// ListTasks returns the owner's tasks ordered by ID.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]store.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, description, completed, created_at
		FROM tasks WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, wrap(err)
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Task, error) {
		var t store.Task
		err := row.Scan(&t.ID, &t.OwnerID, &t.Description, &t.Completed, &t.CreatedAt)
		t.CreatedAt = t.CreatedAt.UTC()
		return t, err
	})
	if err != nil {
		return nil, wrap(err)
	}
	return tasks, nil
}

// DeleteTask removes one task owned by ownerID.
func (s *Store) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, taskID, ownerID)
	if err != nil {
		return wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteByOwner removes all tasks of ownerID.
func (s *Store) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, wrap(err)
	}
	return tag.RowsAffected(), nil
}

// DeleteAccountCascade locks the account row, deletes its tasks, and then
// the account, all in one transaction.
func (s *Store) DeleteAccountCascade(ctx context.Context, id string) (int64, error) {
	var removed int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrNotFound
			}
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE owner_id = $1`, id)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected()

		if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, err
		}
		return 0, wrap(err)
	}
	return removed, nil
}

// Ping acquires a connection and reports the latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.pool.Ping(ctx); err != nil {
		return time.Since(start), wrap(err)
	}
	return time.Since(start), nil
}

var (
	_ store.Backend        = (*Store)(nil)
	_ store.CascadeDeleter = (*Store)(nil)
)

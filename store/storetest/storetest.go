// Package storetest holds a behavioural suite shared by every store backend.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/store"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty backend for one subtest.
type Factory func(t *testing.T) store.Backend

// Run exercises the store.Backend contract against fresh backends from newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Helper()

	tests := map[string]func(t *testing.T, b store.Backend){
		"CreateAndGet":           testCreateAndGet,
		"DuplicateEmail":         testDuplicateEmail,
		"UpdateMovesEmail":       testUpdateMovesEmail,
		"TokenLifecycle":         testTokenLifecycle,
		"TaskLifecycle":          testTaskLifecycle,
		"DeleteByOwnerCounts":    testDeleteByOwnerCounts,
		"DeleteLeavesTasksAlone": testDeleteLeavesTasksAlone,
		"CascadeDelete":          testCascadeDelete,
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			fn(t, newBackend(t))
		})
	}
}

// NewAccount builds an account with a unique id and the given email.
func NewAccount(email string) *account.Account {
	return account.New(uuid.NewString(), account.Fields{
		Name:  "Ann",
		Age:   30,
		Email: email,
	}, "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA", time.Now().Truncate(time.Millisecond))
}

// NewTask builds a task owned by ownerID.
func NewTask(ownerID, description string) *store.Task {
	return &store.Task{
		ID:          ulid.Make().String(),
		OwnerID:     ownerID,
		Description: description,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

func testCreateAndGet(t *testing.T, b store.Backend) {
	ctx := context.Background()
	a := NewAccount("ann@x.com")
	require.NoError(t, b.Create(ctx, a))

	got, err := b.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "ann@x.com", got.Email)
	assert.Equal(t, a.PasswordHash, got.PasswordHash)
	assert.Equal(t, 30, got.Age)
	assert.Empty(t, got.Tokens)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))

	byEmail, err := b.GetByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byEmail.ID)

	_, err = b.GetByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = b.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDuplicateEmail(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.Create(ctx, NewAccount("dup@x.com")))
	err := b.Create(ctx, NewAccount("dup@x.com"))
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)
}

func testUpdateMovesEmail(t *testing.T, b store.Backend) {
	ctx := context.Background()
	a := NewAccount("first@x.com")
	other := NewAccount("taken@x.com")
	require.NoError(t, b.Create(ctx, a))
	require.NoError(t, b.Create(ctx, other))
	require.NoError(t, b.AppendToken(ctx, a.ID, account.TokenRecord{Token: "t1"}))

	a.Email = "second@x.com"
	a.Name = "Annie"
	require.NoError(t, b.Update(ctx, a))

	got, err := b.GetByEmail(ctx, "second@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Annie", got.Name)
	assert.Equal(t, []account.TokenRecord{{Token: "t1"}}, got.Tokens)

	_, err = b.GetByEmail(ctx, "first@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	a.Email = "taken@x.com"
	assert.ErrorIs(t, b.Update(ctx, a), store.ErrDuplicateEmail)

	missing := NewAccount("ghost@x.com")
	assert.ErrorIs(t, b.Update(ctx, missing), store.ErrNotFound)
}

func testTokenLifecycle(t *testing.T, b store.Backend) {
	ctx := context.Background()
	a := NewAccount("tokens@x.com")
	require.NoError(t, b.Create(ctx, a))

	for _, tok := range []string{"t1", "t2", "t3"} {
		require.NoError(t, b.AppendToken(ctx, a.ID, account.TokenRecord{Token: tok}))
	}
	ok, err := b.HasToken(ctx, a.ID, "t2")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.RemoveToken(ctx, a.ID, "t2"))
	require.NoError(t, b.RemoveToken(ctx, a.ID, "t2"))
	ok, err = b.HasToken(ctx, a.ID, "t2")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := b.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []account.TokenRecord{{Token: "t1"}, {Token: "t3"}}, got.Tokens)

	require.NoError(t, b.ClearTokens(ctx, a.ID))
	got, err = b.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tokens)

	err = b.AppendToken(ctx, uuid.NewString(), account.TokenRecord{Token: "orphan"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testTaskLifecycle(t *testing.T, b store.Backend) {
	ctx := context.Background()
	owner := NewAccount("owner@x.com")
	other := NewAccount("other@x.com")
	require.NoError(t, b.Create(ctx, owner))
	require.NoError(t, b.Create(ctx, other))

	first := NewTask(owner.ID, "write tests")
	second := NewTask(owner.ID, "ship it")
	require.NoError(t, b.CreateTask(ctx, first))
	require.NoError(t, b.CreateTask(ctx, second))
	require.NoError(t, b.CreateTask(ctx, NewTask(other.ID, "unrelated")))

	tasks, err := b.ListTasks(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, first.ID, tasks[0].ID)
	assert.Equal(t, "ship it", tasks[1].Description)
	assert.Equal(t, owner.ID, tasks[1].OwnerID)

	assert.ErrorIs(t, b.DeleteTask(ctx, other.ID, first.ID), store.ErrNotFound)
	require.NoError(t, b.DeleteTask(ctx, owner.ID, first.ID))
	assert.ErrorIs(t, b.DeleteTask(ctx, owner.ID, first.ID), store.ErrNotFound)

	err = b.CreateTask(ctx, NewTask(uuid.NewString(), "orphan"))
	assert.ErrorIs(t, err, store.ErrOwnerNotFound)

	empty, err := b.ListTasks(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testDeleteByOwnerCounts(t *testing.T, b store.Backend) {
	ctx := context.Background()
	for _, n := range []int{0, 1, 5} {
		owner := NewAccount(fmt.Sprintf("n%d@x.com", n))
		require.NoError(t, b.Create(ctx, owner))
		for i := 0; i < n; i++ {
			require.NoError(t, b.CreateTask(ctx, NewTask(owner.ID, fmt.Sprintf("task %d", i))))
		}

		removed, err := b.DeleteByOwner(ctx, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(n), removed)

		tasks, err := b.ListTasks(ctx, owner.ID)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	}
}

func testDeleteLeavesTasksAlone(t *testing.T, b store.Backend) {
	ctx := context.Background()
	a := NewAccount("plain@x.com")
	require.NoError(t, b.Create(ctx, a))

	require.NoError(t, b.Delete(ctx, a.ID))
	_, err := b.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, b.Delete(ctx, a.ID), store.ErrNotFound)

	// The email is free again.
	require.NoError(t, b.Create(ctx, NewAccount("plain@x.com")))
}

func testCascadeDelete(t *testing.T, b store.Backend) {
	cd, ok := b.(store.CascadeDeleter)
	if !ok {
		t.Skip("backend does not implement CascadeDeleter")
	}
	ctx := context.Background()

	for _, n := range []int{0, 1, 7} {
		owner := NewAccount(fmt.Sprintf("cascade%d@x.com", n))
		require.NoError(t, b.Create(ctx, owner))
		require.NoError(t, b.AppendToken(ctx, owner.ID, account.TokenRecord{Token: "tok"}))
		for i := 0; i < n; i++ {
			require.NoError(t, b.CreateTask(ctx, NewTask(owner.ID, fmt.Sprintf("task %d", i))))
		}

		removed, err := cd.DeleteAccountCascade(ctx, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(n), removed)

		_, err = b.GetByID(ctx, owner.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		tasks, err := b.ListTasks(ctx, owner.ID)
		require.NoError(t, err)
		assert.Empty(t, tasks)
		has, err := b.HasToken(ctx, owner.ID, "tok")
		require.NoError(t, err)
		assert.False(t, has)
	}

	_, err := cd.DeleteAccountCascade(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

//go:build integration

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklist/apiserver/config"
	"github.com/tasklist/apiserver/internal/db"
	"github.com/tasklist/apiserver/types"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to docker: %v\n", err)
		os.Exit(1)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=todo",
			"POSTGRES_PASSWORD=password",
			"POSTGRES_DB=todo_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		os.Exit(1)
	}
	_ = resource.Expire(300)

	port, _ := strconv.Atoi(resource.GetPort("5432/tcp"))
	cfg := config.Config{Database: config.DatabaseConfig{
		Host:     "localhost",
		Port:     port,
		User:     "todo",
		Password: "password",
		DBName:   "todo_test",
	}}

	pool.MaxWait = 2 * time.Minute
	if err := pool.Retry(func() error {
		conn, err := db.Open(context.Background(), cfg)
		if err != nil {
			return err
		}
		testDB = conn
		return nil
	}); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = pool.Purge(resource)
		os.Exit(1)
	}

	if err := db.MigrateUp(db.URL(cfg.Database)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = pool.Purge(resource)
		os.Exit(1)
	}

	code := m.Run()

	_ = testDB.Close()
	_ = pool.Purge(resource)
	os.Exit(code)
}

func createUser(t *testing.T, email string) types.User {
	t.Helper()
	user, err := NewUserRepository(testDB).Create(context.Background(), types.User{
		Email:      email,
		Credential: "stored",
		FirstName:  "Store",
		LastName:   "Test",
	})
	require.NoError(t, err)
	return user
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()
	email := fmt.Sprintf("user_%d@example.com", time.Now().UnixNano())

	created := createUser(t, email)
	assert.NotZero(t, created.ID)

	byEmail, err := repo.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "stored", byEmail.Credential)

	_, err = repo.Create(ctx, types.User{Email: email, Credential: "x", FirstName: "a", LastName: "b"})
	assert.ErrorIs(t, err, ErrConflict)

	var rows int
	require.NoError(t, testDB.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE email = $1`, email).Scan(&rows))
	assert.Equal(t, 1, rows)

	_, err = repo.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByEmail(ctx, "nul\x00@example.com")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestUserRepositoryFieldLimits(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()
	stamp := time.Now().UnixNano()

	long := strings.Repeat("n", 300)
	created, err := repo.Create(ctx, types.User{
		Email:      fmt.Sprintf("long_%d@example.com", stamp),
		Credential: "stored",
		FirstName:  long,
		LastName:   long,
	})
	require.NoError(t, err)
	assert.Equal(t, long, created.FirstName)

	_, err = repo.Create(ctx, types.User{
		Email:      fmt.Sprintf("nul_%d@example.com", stamp),
		Credential: "stored",
		FirstName:  "a\x00b",
		LastName:   "c",
	})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestTaskRepository(t *testing.T) {
	repo := NewTaskRepository(testDB)
	ctx := context.Background()
	stamp := time.Now().UnixNano()
	owner := createUser(t, fmt.Sprintf("owner_%d@example.com", stamp))
	other := createUser(t, fmt.Sprintf("other_%d@example.com", stamp))

	tasks, err := repo.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)

	first, err := repo.Create(ctx, types.Task{Content: "first", OwnerID: owner.ID})
	require.NoError(t, err)
	second, err := repo.Create(ctx, types.Task{Content: "second", OwnerID: owner.ID})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
	assert.False(t, first.Completed)

	done := true
	updated, err := repo.Update(ctx, owner.ID, first.ID, types.TaskPatch{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "first", updated.Content)

	content := "first, edited"
	updated, err = repo.Update(ctx, owner.ID, first.ID, types.TaskPatch{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, content, updated.Content)
	assert.True(t, updated.Completed)

	fetched, err := repo.Get(ctx, owner.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, content, fetched.Content)

	_, err = repo.Get(ctx, other.ID, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Update(ctx, other.ID, first.ID, types.TaskPatch{Content: &content})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, other.ID, first.ID), ErrNotFound)

	tasks, err = repo.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, first.ID, tasks[0].ID)
	assert.Equal(t, second.ID, tasks[1].ID)

	require.NoError(t, repo.Delete(ctx, owner.ID, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, owner.ID, first.ID), ErrNotFound)
	_, err = repo.Update(ctx, owner.ID, first.ID, types.TaskPatch{Completed: &done})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepositoryRejectedValues(t *testing.T) {
	repo := NewTaskRepository(testDB)
	ctx := context.Background()
	owner := createUser(t, fmt.Sprintf("bounds_%d@example.com", time.Now().UnixNano()))

	_, err := repo.Create(ctx, types.Task{Content: "a\x00b", OwnerID: owner.ID})
	assert.ErrorIs(t, err, ErrInvalidValue)

	task, err := repo.Create(ctx, types.Task{Content: "kept", OwnerID: owner.ID})
	require.NoError(t, err)
	bad := "a\x00b"
	_, err = repo.Update(ctx, owner.ID, task.ID, types.TaskPatch{Content: &bad})
	assert.ErrorIs(t, err, ErrInvalidValue)

	// ids past the int4 column range read as missing rows
	const huge = 9999999999
	_, err = repo.Get(ctx, owner.ID, huge)
	assert.ErrorIs(t, err, ErrNotFound)
	done := true
	_, err = repo.Update(ctx, owner.ID, huge, types.TaskPatch{Completed: &done})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, owner.ID, huge), ErrNotFound)
}

package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/todos-api/internal/domain"
	"github.com/phrazzld/todos-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestNewPostgresUserStore(t *testing.T) {
	db, _ := newMockDB(t)

	tests := []struct {
		name     string
		cost     int
		expected int
	}{
		{"valid cost", 12, 12},
		{"minimum cost", bcrypt.MinCost, bcrypt.MinCost},
		{"too low falls back", 2, bcrypt.DefaultCost},
		{"too high falls back", 40, bcrypt.DefaultCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPostgresUserStore(db, tt.cost)
			assert.Equal(t, tt.expected, s.bcryptCost)
		})
	}
}

func TestPostgresUserStore_Create(t *testing.T) {
	t.Run("hashes password and sets id", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresUserStore(db, bcrypt.MinCost)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (username, password)")).
			WithArgs("alice", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

		user, err := domain.NewUser("alice", "password123")
		require.NoError(t, err)

		require.NoError(t, s.Create(context.Background(), user))
		assert.Equal(t, int64(7), user.ID)
		assert.Empty(t, user.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("password123")))
	})

	t.Run("duplicate username", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresUserStore(db, bcrypt.MinCost)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: usersUsernameKey})

		user, err := domain.NewUser("alice", "password123")
		require.NoError(t, err)

		err = s.Create(context.Background(), user)
		assert.ErrorIs(t, err, store.ErrUsernameExists)
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("invalid user never reaches the database", func(t *testing.T) {
		db, _ := newMockDB(t)
		s := NewPostgresUserStore(db, bcrypt.MinCost)

		err := s.Create(context.Background(), &domain.User{Username: "", Password: "password123"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestPostgresUserStore_Get(t *testing.T) {
	t.Run("by id", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresUserStore(db, bcrypt.MinCost)

		mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password"}).
				AddRow(int64(3), "bob", "$2a$04$hash"))

		user, err := s.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "bob", user.Username)
		assert.Equal(t, "$2a$04$hash", user.HashedPassword)
	})

	t.Run("by username not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresUserStore(db, bcrypt.MinCost)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
			WithArgs("nobody").
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetByUsername(context.Background(), "nobody")
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})
}

func TestPostgresUserStore_List(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, bcrypt.MinCost)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password"}).
			AddRow(int64(1), "alice", "h1").
			AddRow(int64(2), "bob", "h2"))

	users, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, int64(2), users[1].ID)
}

func TestPostgresUserStore_WithTx(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, 11)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	txStore, ok := s.WithTx(tx).(*PostgresUserStore)
	require.True(t, ok)
	assert.Equal(t, tx, txStore.db)
	assert.Equal(t, 11, txStore.bcryptCost)

	mock.ExpectRollback()
	require.NoError(t, tx.Rollback())
}

package repository

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func TestFileTokenRepository_FindByToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFileTokenRepository(db)

	id := uuid.New()
	expires := time.Now().Add(15 * time.Minute)
	mock.ExpectQuery(`SELECT \* FROM "file_tokens" WHERE token = \$1`).
		WithArgs("tok-123", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "token", "file_id", "file_name", "file_type", "expires"}).
			AddRow(id, "tok-123", "abc.pdf", "abc.pdf", "application/pdf", expires))

	ft, err := repo.FindByToken(context.Background(), "tok-123")

	require.NoError(t, err)
	assert.Equal(t, "abc.pdf", ft.FileID)
	assert.False(t, ft.Expired(time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileTokenRepository_FindByToken_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFileTokenRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "file_tokens" WHERE token = \$1`).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByToken(context.Background(), "missing")

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileTokenRepository_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFileTokenRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "file_tokens" WHERE expires < \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	deleted, err := repo.DeleteExpired(context.Background(), now)

	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileTokenRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFileTokenRepository(db)

	token := &model.FileToken{
		Token:    "tok-456",
		FileID:   "doc.pdf",
		FileName: "doc.pdf",
		FileType: "application/pdf",
		Expires:  time.Now().Add(15 * time.Minute),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "file_tokens"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), token)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

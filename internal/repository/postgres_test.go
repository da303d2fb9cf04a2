package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/adboard/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

var userRowColumns = []string{
	"id", "username", "email", "password", "api_key", "role", "avatar",
	"otp", "otp_expires_at", "verified", "created_at", "updated_at",
}

func TestCreateUser_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+users\s*\(id,\s*username.*RETURNING\s+created_at,\s*updated_at$`).
		WithArgs("01HX", "alice", "alice@example.com", "hash", "key", models.RoleEmployee, "", "", nil, false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &models.User{ID: "01HX", Username: "alice", Email: "alice@example.com", Password: "hash", APIKey: "key", Role: models.RoleEmployee}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	require.Equal(t, now, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Duplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.CreateUser(context.Background(), &models.User{ID: "1", Username: "alice"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestFindUserByUsername_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u-1", "alice", "alice@example.com", "hash", "key", "admin", "", "1234", nil, false, now, now)
	mock.ExpectQuery(`^SELECT\s+id,\s*username.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`).
		WithArgs("alice").
		WillReturnRows(rows)

	got, err := repo.FindUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "u-1", got.ID)
	require.Equal(t, models.RoleAdmin, got.Role)
	require.Equal(t, "hash", got.Password)
	require.Nil(t, got.OTPExpiresAt)
}

func TestFindUserByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := repo.FindUserByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUsername_TouchesOnlyUsername(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u-1", "bob", "alice@example.com", "hash", "key", "employee", "", "", nil, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET username = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1 RETURNING `)).
		WithArgs("u-1", "bob").
		WillReturnRows(rows)

	got, err := repo.UpdateUsername(context.Background(), "u-1", "bob")
	require.NoError(t, err)
	require.Equal(t, "bob", got.Username)
	require.Equal(t, "hash", got.Password)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetOTP_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	exp := time.Now().Add(10 * time.Minute)

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+otp\s*=\s*\$2`).
		WithArgs("ghost", "1234", exp).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetOTP(context.Background(), "ghost", "1234", exp)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordOTPFailure(t *testing.T) {
	tests := []struct {
		name      string
		exhausted bool
	}{
		{name: "below limit", exhausted: false},
		{name: "limit reached", exhausted: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectQuery(`UPDATE\s+users\s+SET\s+otp_attempts\s*=\s*CASE`).
				WithArgs("u-1", 5).
				WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(tt.exhausted))

			exhausted, err := repo.RecordOTPFailure(context.Background(), "u-1", 5)
			require.NoError(t, err)
			require.Equal(t, tt.exhausted, exhausted)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRecordOTPFailure_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`UPDATE\s+users\s+SET\s+otp_attempts`).
		WithArgs("ghost", 5).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.RecordOTPFailure(context.Background(), "ghost", 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListAdsByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "title", "description", "location", "category", "price", "image", "user_id", "created_at", "updated_at"}).
		AddRow("a-1", "Bike", "Red bike", "{Tashkent,Samarkand}", "{sport}", "100", "/uploads/bike.png", "u-1", now, now)
	mock.ExpectQuery(`FROM\s+ads\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC`).
		WithArgs("u-1").
		WillReturnRows(rows)

	ads, err := repo.ListAdsByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, ads, 1)
	require.Equal(t, []string{"Tashkent", "Samarkand"}, ads[0].Location)
	require.Equal(t, "u-1", ads[0].User)
}

func TestListAds_EmptyIsNotAnError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+ads\s+ORDER\s+BY`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ads, err := repo.ListAds(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ads)
	require.Empty(t, ads)
}

func TestUpdateAd_BuildsPartialSet(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()
	price := "250"

	rows := sqlmock.NewRows([]string{"id", "title", "description", "location", "category", "price", "image", "user_id", "created_at", "updated_at"}).
		AddRow("a-1", "Bike", "Red bike", "{Tashkent}", "{sport}", "250", "", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE ads SET price = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1 RETURNING`)).
		WithArgs("a-1", "250").
		WillReturnRows(rows)

	ad, err := repo.UpdateAd(context.Background(), "a-1", models.AdPatch{Price: &price})
	require.NoError(t, err)
	require.Equal(t, "250", ad.Price)
	require.Equal(t, "", ad.User)
}

func TestDeleteAd_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+ads`).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.DeleteAd(context.Background(), "nope"), ErrNotFound)
}

func TestIsTokenRevoked(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT\s+EXISTS`).
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	revoked, err := repo.IsTokenRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestPruneRevokedTokens_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+revoked_tokens`).
		WillReturnError(errors.New("db down"))

	_, err := repo.PruneRevokedTokens(context.Background(), time.Now())
	require.ErrorContains(t, err, "db down")
}

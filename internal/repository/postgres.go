package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/adboard/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const userColumns = `id, username, email, password, api_key, role, avatar, otp, otp_expires_at, verified, created_at, updated_at`

const adColumns = `id, title, description, location, category, price, image, user_id, created_at, updated_at`

// Repository provides Postgres database operations
type Repository struct {
	db *sqlx.DB
}

var _ Store = (*Repository)(nil)

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: sqlx.NewDb(db, "postgres")}
}

// OpenPostgres connects to dsn, verifies the connection and applies migrations
func OpenPostgres(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewRepository(db), nil
}

// Migrate applies the embedded schema migrations
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password, api_key, role, avatar, otp, otp_expires_at, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query,
		user.ID, user.Username, user.Email, user.Password, user.APIKey, user.Role,
		user.Avatar, user.OTP, user.OTPExpiresAt, user.Verified).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.findUser(ctx, "id", id)
}

// FindUserByUsername retrieves a user by username
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(ctx, "username", username)
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, "email", email)
}

func (r *Repository) findUser(ctx context.Context, column, value string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	if err := r.db.GetContext(ctx, user, query, value); err != nil {
		return nil, fmt.Errorf("failed to find user: %w", mapError(err))
	}
	return user, nil
}

// ListUsers returns every user, oldest first
func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *Repository) UpdateUsername(ctx context.Context, id, username string) (*models.User, error) {
	return r.updateUser(ctx, id, "username = $2", username)
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string) (*models.User, error) {
	return r.updateUser(ctx, id, "password = $2", hash)
}

func (r *Repository) UpdateAvatar(ctx context.Context, id, avatar string) (*models.User, error) {
	return r.updateUser(ctx, id, "avatar = $2", avatar)
}

func (r *Repository) MarkVerified(ctx context.Context, id string) (*models.User, error) {
	return r.updateUser(ctx, id, "verified = TRUE, otp = '', otp_expires_at = NULL, otp_attempts = 0")
}

func (r *Repository) updateUser(ctx context.Context, id, set string, args ...any) (*models.User, error) {
	user := &models.User{}
	query := `UPDATE users SET ` + set + `, updated_at = CURRENT_TIMESTAMP WHERE id = $1 RETURNING ` + userColumns
	if err := r.db.GetContext(ctx, user, query, append([]any{id}, args...)...); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", mapError(err))
	}
	return user, nil
}

// SetOTP stores the most recently generated one-time code
func (r *Repository) SetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error {
	query := `UPDATE users SET otp = $2, otp_expires_at = $3, otp_attempts = 0, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, otp, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return requireAffected(res)
}

// RecordOTPFailure counts a wrong code and clears the pending one once
// maxAttempts misses have been recorded
func (r *Repository) RecordOTPFailure(ctx context.Context, id string, maxAttempts int) (bool, error) {
	query := `
		UPDATE users SET
			otp_attempts   = CASE WHEN otp_attempts + 1 >= $2 THEN 0 ELSE otp_attempts + 1 END,
			otp            = CASE WHEN otp_attempts + 1 >= $2 THEN '' ELSE otp END,
			otp_expires_at = CASE WHEN otp_attempts + 1 >= $2 THEN NULL ELSE otp_expires_at END,
			updated_at     = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING otp = ''`
	var exhausted bool
	if err := r.db.QueryRowxContext(ctx, query, id, maxAttempts).Scan(&exhausted); err != nil {
		return false, fmt.Errorf("failed to record otp failure: %w", mapError(err))
	}
	return exhausted, nil
}

// ClearExpiredOTPs drops one-time codes whose expiry has passed
func (r *Repository) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE users SET otp = '', otp_expires_at = NULL, otp_attempts = 0 WHERE otp_expires_at IS NOT NULL AND otp_expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired otps: %w", err)
	}
	return res.RowsAffected()
}

type adRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Location    pq.StringArray `db:"location"`
	Category    pq.StringArray `db:"category"`
	Price       string         `db:"price"`
	Image       string         `db:"image"`
	UserID      sql.NullString `db:"user_id"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (row adRow) toModel() models.Ad {
	return models.Ad{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Location:    []string(row.Location),
		Category:    []string(row.Category),
		Price:       row.Price,
		Image:       row.Image,
		User:        row.UserID.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// CreateAd creates a new listing
func (r *Repository) CreateAd(ctx context.Context, ad *models.Ad) error {
	query := `
		INSERT INTO ads (id, title, description, location, category, price, image, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query,
		ad.ID, ad.Title, ad.Description, pq.Array(ad.Location), pq.Array(ad.Category),
		ad.Price, ad.Image, nullString(ad.User)).
		Scan(&ad.CreatedAt, &ad.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ad: %w", mapError(err))
	}
	return nil
}

// FindAdByID retrieves a listing by id
func (r *Repository) FindAdByID(ctx context.Context, id string) (*models.Ad, error) {
	var row adRow
	query := `SELECT ` + adColumns + ` FROM ads WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, fmt.Errorf("failed to find ad: %w", mapError(err))
	}
	ad := row.toModel()
	return &ad, nil
}

// ListAds returns all listings, newest first
func (r *Repository) ListAds(ctx context.Context) ([]models.Ad, error) {
	return r.listAds(ctx, `SELECT `+adColumns+` FROM ads ORDER BY created_at DESC`)
}

// ListAdsByUser returns the listings owned by userID, newest first
func (r *Repository) ListAdsByUser(ctx context.Context, userID string) ([]models.Ad, error) {
	return r.listAds(ctx, `SELECT `+adColumns+` FROM ads WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *Repository) listAds(ctx context.Context, query string, args ...any) ([]models.Ad, error) {
	var rows []adRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	ads := make([]models.Ad, 0, len(rows))
	for _, row := range rows {
		ads = append(ads, row.toModel())
	}
	return ads, nil
}

// UpdateAd applies the set fields of patch to the listing
func (r *Repository) UpdateAd(ctx context.Context, id string, patch models.AdPatch) (*models.Ad, error) {
	if patch.Empty() {
		return r.FindAdByID(ctx, id)
	}

	var setClauses []string
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Location != nil {
		add("location", pq.Array(patch.Location))
	}
	if patch.Category != nil {
		add("category", pq.Array(patch.Category))
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Image != nil {
		add("image", *patch.Image)
	}

	var row adRow
	query := `UPDATE ads SET ` + strings.Join(setClauses, ", ") +
		`, updated_at = CURRENT_TIMESTAMP WHERE id = $1 RETURNING ` + adColumns
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update ad: %w", mapError(err))
	}
	ad := row.toModel()
	return &ad, nil
}

// DeleteAd removes a listing
func (r *Repository) DeleteAd(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ad: %w", err)
	}
	return requireAffected(res)
}

// RevokeToken records a token id as revoked until it would have expired anyway
func (r *Repository) RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	query := `
		INSERT INTO revoked_tokens (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, jti, userID, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *Repository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`
	if err := r.db.GetContext(ctx, &revoked, query, jti); err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return revoked, nil
}

func (r *Repository) PruneRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	return res.RowsAffected()
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

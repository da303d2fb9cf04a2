package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Dan9191/adboard/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique field is already taken
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository persists user accounts. Each update method touches only
// the field it names, so the stored password hash changes only through
// UpdatePasswordHash.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUsername(ctx context.Context, id, username string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id, avatar string) (*models.User, error)
	SetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error
	// RecordOTPFailure counts a wrong code against the pending one. Once
	// maxAttempts is reached the code is cleared and exhausted is true.
	RecordOTPFailure(ctx context.Context, id string, maxAttempts int) (exhausted bool, err error)
	MarkVerified(ctx context.Context, id string) (*models.User, error)
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// AdRepository persists listings
type AdRepository interface {
	CreateAd(ctx context.Context, ad *models.Ad) error
	FindAdByID(ctx context.Context, id string) (*models.Ad, error)
	ListAds(ctx context.Context) ([]models.Ad, error)
	ListAdsByUser(ctx context.Context, userID string) ([]models.Ad, error)
	UpdateAd(ctx context.Context, id string, patch models.AdPatch) (*models.Ad, error)
	DeleteAd(ctx context.Context, id string) error
}

// TokenRepository tracks bearer tokens revoked before their expiry
type TokenRepository interface {
	RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	PruneRevokedTokens(ctx context.Context, now time.Time) (int64, error)
}

// Store is the full persistence surface used by the service layer
type Store interface {
	UserRepository
	AdRepository
	TokenRepository
	Ping(ctx context.Context) error
	Close() error
}

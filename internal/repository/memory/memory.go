// Package memory is an in-process Store used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/adboard/internal/models"
	"github.com/Dan9191/adboard/internal/repository"
)

type revoked struct {
	userID    string
	expiresAt time.Time
}

// Repository keeps records in maps guarded by a single mutex. Every value
// handed out is a copy, so callers cannot mutate stored state.
type Repository struct {
	mu     sync.RWMutex
	users  map[string]models.User
	ads    map[string]models.Ad
	tokens map[string]revoked
	misses map[string]int // failed OTP attempts per user
	now    func() time.Time
}

var _ repository.Store = (*Repository)(nil)

func New() *Repository {
	return &Repository{
		users:  make(map[string]models.User),
		ads:    make(map[string]models.Ad),
		tokens: make(map[string]revoked),
		misses: make(map[string]int),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) Ping(context.Context) error { return nil }

func (r *Repository) Close() error { return nil }

func (r *Repository) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email || (user.APIKey != "" && u.APIKey == user.APIKey) {
			return repository.ErrDuplicate
		}
	}
	now := r.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = copyUser(*user)
	return nil
}

func (r *Repository) FindUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyUser(u)
	return &out, nil
}

func (r *Repository) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	return r.findUser(func(u models.User) bool { return u.Username == username })
}

func (r *Repository) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.findUser(func(u models.User) bool { return u.Email == email })
}

func (r *Repository) findUser(match func(models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			out := copyUser(u)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) ListUsers(context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *Repository) UpdateUsername(_ context.Context, id, username string) (*models.User, error) {
	return r.updateUser(id, func(u *models.User) error {
		for otherID, other := range r.users {
			if otherID != id && other.Username == username {
				return repository.ErrDuplicate
			}
		}
		u.Username = username
		return nil
	})
}

func (r *Repository) UpdatePasswordHash(_ context.Context, id, hash string) (*models.User, error) {
	return r.updateUser(id, func(u *models.User) error {
		u.Password = hash
		return nil
	})
}

func (r *Repository) UpdateAvatar(_ context.Context, id, avatar string) (*models.User, error) {
	return r.updateUser(id, func(u *models.User) error {
		u.Avatar = avatar
		return nil
	})
}

func (r *Repository) MarkVerified(_ context.Context, id string) (*models.User, error) {
	return r.updateUser(id, func(u *models.User) error {
		u.Verified = true
		u.OTP = ""
		u.OTPExpiresAt = nil
		delete(r.misses, u.ID)
		return nil
	})
}

func (r *Repository) SetOTP(_ context.Context, id, otp string, expiresAt time.Time) error {
	_, err := r.updateUser(id, func(u *models.User) error {
		u.OTP = otp
		u.OTPExpiresAt = &expiresAt
		delete(r.misses, u.ID)
		return nil
	})
	return err
}

func (r *Repository) RecordOTPFailure(_ context.Context, id string, maxAttempts int) (bool, error) {
	var exhausted bool
	_, err := r.updateUser(id, func(u *models.User) error {
		r.misses[u.ID]++
		if r.misses[u.ID] >= maxAttempts {
			u.OTP = ""
			u.OTPExpiresAt = nil
			delete(r.misses, u.ID)
		}
		exhausted = u.OTP == ""
		return nil
	})
	return exhausted, err
}

func (r *Repository) updateUser(id string, mutate func(*models.User) error) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u = copyUser(u)
	if err := mutate(&u); err != nil {
		return nil, err
	}
	u.UpdatedAt = r.now()
	r.users[id] = u
	out := copyUser(u)
	return &out, nil
}

func (r *Repository) ClearExpiredOTPs(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, u := range r.users {
		if u.OTPExpiresAt != nil && u.OTPExpiresAt.Before(now) {
			u.OTP = ""
			u.OTPExpiresAt = nil
			r.users[id] = u
			delete(r.misses, id)
			n++
		}
	}
	return n, nil
}

func (r *Repository) CreateAd(_ context.Context, ad *models.Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ads[ad.ID]; ok {
		return repository.ErrDuplicate
	}
	now := r.now()
	ad.CreatedAt, ad.UpdatedAt = now, now
	r.ads[ad.ID] = copyAd(*ad)
	return nil
}

func (r *Repository) FindAdByID(_ context.Context, id string) (*models.Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ad, ok := r.ads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyAd(ad)
	return &out, nil
}

func (r *Repository) ListAds(context.Context) ([]models.Ad, error) {
	return r.listAds(func(models.Ad) bool { return true }), nil
}

func (r *Repository) ListAdsByUser(_ context.Context, userID string) ([]models.Ad, error) {
	return r.listAds(func(ad models.Ad) bool { return ad.User == userID }), nil
}

// listAds returns matching ads newest first; ids are time ordered so they
// break ties between ads created within the same clock tick.
func (r *Repository) listAds(match func(models.Ad) bool) []models.Ad {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ads := make([]models.Ad, 0)
	for _, ad := range r.ads {
		if match(ad) {
			ads = append(ads, copyAd(ad))
		}
	}
	sort.Slice(ads, func(i, j int) bool {
		if !ads[i].CreatedAt.Equal(ads[j].CreatedAt) {
			return ads[i].CreatedAt.After(ads[j].CreatedAt)
		}
		return ads[i].ID > ads[j].ID
	})
	return ads
}

func (r *Repository) UpdateAd(_ context.Context, id string, patch models.AdPatch) (*models.Ad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ad, ok := r.ads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !patch.Empty() {
		ad = copyAd(ad)
		patch.Apply(&ad)
		ad.UpdatedAt = r.now()
		r.ads[id] = copyAd(ad)
	}
	out := copyAd(ad)
	return &out, nil
}

func (r *Repository) DeleteAd(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.ads, id)
	return nil
}

func (r *Repository) RevokeToken(_ context.Context, jti, userID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[jti]; !ok {
		r.tokens[jti] = revoked{userID: userID, expiresAt: expiresAt}
	}
	return nil
}

func (r *Repository) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.tokens[jti]
	return ok, nil
}

func (r *Repository) PruneRevokedTokens(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for jti, t := range r.tokens {
		if t.expiresAt.Before(now) {
			delete(r.tokens, jti)
			n++
		}
	}
	return n, nil
}

func copyUser(u models.User) models.User {
	if u.OTPExpiresAt != nil {
		exp := *u.OTPExpiresAt
		u.OTPExpiresAt = &exp
	}
	return u
}

func copyAd(ad models.Ad) models.Ad {
	ad.Location = append([]string(nil), ad.Location...)
	ad.Category = append([]string(nil), ad.Category...)
	return ad
}

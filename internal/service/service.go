package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Dan9191/adboard/internal/auth"
	"github.com/Dan9191/adboard/internal/config"
	"github.com/Dan9191/adboard/internal/repository"
	"github.com/Dan9191/adboard/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Mailer delivers one-time verification codes
type Mailer interface {
	SendOTP(to, code string) error
}

// Upload is a file received with a request
type Upload struct {
	Filename string
	Body     io.Reader
}

// Service handles business logic
type Service struct {
	store    repository.Store
	files    storage.FileStore
	mailer   Mailer
	hasher   *auth.Hasher
	tokens   *auth.TokenIssuer
	roles    auth.RoleResolver
	validate *validator.Validate
	log      *logrus.Logger
	config   *config.Config
	now      func() time.Time

	// bcrypt hash at this service's cost, compared against for unknown users
	dummyOnce sync.Once
	dummy     string
}

// Option customizes a Service
type Option func(*Service)

// WithRoleResolver replaces the admin bootstrap resolver
func WithRoleResolver(r auth.RoleResolver) Option {
	return func(s *Service) { s.roles = r }
}

// WithTokenIssuer replaces the issuer built from the config
func WithTokenIssuer(t *auth.TokenIssuer) Option {
	return func(s *Service) { s.tokens = t }
}

// WithClock sets the time source used for OTP expiry
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService initializes a new service
func NewService(store repository.Store, files storage.FileStore, mailer Mailer, log *logrus.Logger, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		store:    store,
		files:    files,
		mailer:   mailer,
		hasher:   auth.NewHasher(cfg.BcryptCost),
		tokens:   auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpire),
		roles:    auth.CredentialRoleResolver{AdminUsername: cfg.AdminUsername, AdminPassword: cfg.AdminPassword},
		validate: newValidator(),
		log:      log,
		config:   cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping reports whether the backing store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// saveUpload stores u, reporting unsupported file types to the caller
func (s *Service) saveUpload(ctx context.Context, field string, u *Upload) (string, error) {
	path, err := s.files.Save(ctx, field, u.Filename, u.Body)
	if errors.Is(err, storage.ErrUnsupportedType) {
		return "", BadRequest(MsgUnsupportedImage)
	}
	if err != nil {
		s.log.WithError(err).WithField("field", field).Error("Failed to store upload")
		return "", err
	}
	return path, nil
}

// discardUpload removes a stored file whose record was never written
func (s *Service) discardUpload(ctx context.Context, path string) {
	if err := s.files.Delete(context.WithoutCancel(ctx), path); err != nil {
		s.log.WithError(err).WithField("path", path).Warn("Failed to remove orphaned upload")
	}
}

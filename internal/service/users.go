package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/adboard/internal/auth"
	"github.com/Dan9191/adboard/internal/models"
	"github.com/Dan9191/adboard/internal/repository"
	"github.com/Dan9191/adboard/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// defaultOTPAttempts caps wrong codes when the config leaves it unset
const defaultOTPAttempts = 5

// Register creates a new user with hashed password and returns it with a bearer token
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, string, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, "", BadRequest(MsgAllFields)
	}
	if err := s.validate.Struct(registerInput{Username: username, Email: email, Password: password}); err != nil {
		return nil, "", BadRequest(validationMessage(err))
	}

	if taken, err := s.exists(ctx, s.store.FindUserByUsername, username); err != nil {
		return nil, "", err
	} else if taken {
		return nil, "", BadRequest(MsgUsernameTaken)
	}
	if taken, err := s.exists(ctx, s.store.FindUserByEmail, email); err != nil {
		return nil, "", err
	} else if taken {
		return nil, "", BadRequest(MsgEmailTaken)
	}

	role := s.roles.Resolve(username, password)
	if !role.Valid() {
		role = models.RoleEmployee
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	// the pending code is stored with the account in a single write
	code, expiresAt := s.newOTP()
	user := &models.User{
		ID:           utils.NewID(),
		Username:     username,
		Email:        email,
		Password:     hash,
		APIKey:       uuid.NewString(),
		Role:         role,
		OTP:          code,
		OTPExpiresAt: &expiresAt,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", s.duplicateUser(ctx, username)
		}
		return nil, "", err
	}
	s.sendOTP(user)

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")
	return user, token, nil
}

func (s *Service) newOTP() (string, time.Time) {
	return utils.GenerateOTP(utils.OTPLength), s.now().Add(s.config.OTPTTL)
}

// sendOTP mails the user's pending code. A delivery failure is logged and
// does not fail the caller.
func (s *Service) sendOTP(user *models.User) {
	if err := s.mailer.SendOTP(user.Email, user.OTP); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("OTP email not delivered")
	}
}

// duplicateUser reports which unique field a racing insert collided on
func (s *Service) duplicateUser(ctx context.Context, username string) error {
	taken, err := s.exists(ctx, s.store.FindUserByUsername, username)
	if err != nil {
		return err
	}
	if taken {
		return BadRequest(MsgUsernameTaken)
	}
	return BadRequest(MsgEmailTaken)
}

func (s *Service) otpAttempts() int {
	if s.config.OTPMaxAttempts > 0 {
		return s.config.OTPMaxAttempts
	}
	return defaultOTPAttempts
}

func (s *Service) exists(ctx context.Context, find func(context.Context, string) (*models.User, error), value string) (bool, error) {
	_, err := find(ctx, value)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Login authenticates a user and returns it with a bearer token
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", BadRequest(MsgAllFields)
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		// spend the same bcrypt work as a real comparison
		s.hasher.Verify(password, s.dummyHash())
		return nil, "", Unauthorized(MsgInvalidCreds)
	}
	if err != nil {
		return nil, "", err
	}
	if !s.hasher.Verify(password, user.Password) {
		return nil, "", Unauthorized(MsgInvalidCreds)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.log.WithField("user_id", user.ID).Info("User logged in")
	return user, token, nil
}

func (s *Service) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash("adboard-dummy-password")
	})
	return s.dummy
}

// Authenticate resolves a bearer token to its user. Every failure is the
// same 401 so callers cannot tell why a token was refused.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	if token == "" {
		return nil, nil, Unauthorized(MsgNotAuthorized)
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil, Unauthorized(MsgNotAuthorized)
	}

	if claims.ID != "" {
		revoked, err := s.store.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return nil, nil, err
		}
		if revoked {
			return nil, nil, Unauthorized(MsgNotAuthorized)
		}
	}

	user, err := s.store.FindUserByID(ctx, claims.UserID())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, Unauthorized(MsgNotAuthorized)
	}
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// Logout revokes the presented token until it would have expired
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return Unauthorized(MsgNotAuthorized)
	}
	expiresAt := s.now().Add(s.config.JWTExpire)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.store.RevokeToken(ctx, claims.ID, claims.UserID(), expiresAt); err != nil {
		return err
	}
	s.log.WithField("user_id", claims.UserID()).Info("User logged out")
	return nil
}

// ListUsers returns every registered user
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// Me reloads the caller's record
func (s *Service) Me(ctx context.Context, caller *models.User) (*models.User, error) {
	user, err := s.store.FindUserByID(ctx, caller.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound(MsgUserNotFound)
	}
	return user, err
}

// targetUser loads the user a /:id route acts on. Callers may act on
// themselves; admins may act on anyone.
func (s *Service) targetUser(ctx context.Context, caller *models.User, id string) (*models.User, error) {
	if id == "" {
		id = caller.ID
	}
	if id != caller.ID && caller.Role != models.RoleAdmin {
		return nil, Forbidden(MsgForbiddenUser)
	}
	user, err := s.store.FindUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUsername renames the target user
func (s *Service) UpdateUsername(ctx context.Context, caller *models.User, id, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, BadRequest(MsgNewUsername)
	}
	target, err := s.targetUser(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if target.Username == username {
		return target, nil
	}

	if taken, err := s.exists(ctx, s.store.FindUserByUsername, username); err != nil {
		return nil, err
	} else if taken {
		return nil, BadRequest(MsgUsernameTaken)
	}

	user, err := s.store.UpdateUsername(ctx, target.ID, username)
	if err != nil {
		return nil, s.mapUserError(err)
	}
	s.log.WithField("user_id", user.ID).Info("Username updated")
	return user, nil
}

// UpdatePassword stores a new hash for the target user
func (s *Service) UpdatePassword(ctx context.Context, caller *models.User, id, password string) (*models.User, error) {
	if password == "" {
		return nil, BadRequest(MsgNewPassword)
	}
	if err := s.validate.Struct(passwordInput{Password: password}); err != nil {
		return nil, BadRequest(validationMessage(err))
	}
	target, err := s.targetUser(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user, err := s.store.UpdatePasswordHash(ctx, target.ID, hash)
	if err != nil {
		return nil, s.mapUserError(err)
	}
	s.log.WithField("user_id", user.ID).Info("Password updated")
	return user, nil
}

// UpdateAvatar stores the upload and points the target user's avatar at it
func (s *Service) UpdateAvatar(ctx context.Context, caller *models.User, id string, upload *Upload) (*models.User, error) {
	target, err := s.targetUser(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, BadRequest(MsgAvatarRequired)
	}

	path, err := s.saveUpload(ctx, "avatar", upload)
	if err != nil {
		return nil, err
	}
	user, err := s.store.UpdateAvatar(ctx, target.ID, path)
	if err != nil {
		s.discardUpload(ctx, path)
		return nil, s.mapUserError(err)
	}
	return user, nil
}

// DeleteAvatar clears the target user's avatar
func (s *Service) DeleteAvatar(ctx context.Context, caller *models.User, id string) (*models.User, error) {
	target, err := s.targetUser(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !target.HasAvatar() {
		return nil, BadRequest(MsgNoAvatar)
	}
	user, err := s.store.UpdateAvatar(ctx, target.ID, "")
	if err != nil {
		return nil, s.mapUserError(err)
	}
	return user, nil
}

// VerifyOTP checks a submitted code against the caller's pending one and
// marks the account verified.
func (s *Service) VerifyOTP(ctx context.Context, caller *models.User, code string) (*models.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, BadRequest(MsgOTPRequired)
	}
	user, err := s.store.FindUserByID(ctx, caller.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, err
	}

	if user.Verified && user.OTP == "" {
		return nil, BadRequest(MsgAlreadyVerified)
	}
	if user.OTP == "" || (user.OTPExpiresAt != nil && s.now().After(*user.OTPExpiresAt)) {
		return nil, BadRequest(MsgOTPExpired)
	}
	if !utils.VerifyOTP(code, user.OTP) {
		exhausted, err := s.store.RecordOTPFailure(ctx, user.ID, s.otpAttempts())
		if err != nil {
			return nil, s.mapUserError(err)
		}
		if exhausted {
			s.log.WithField("user_id", user.ID).Warn("OTP cleared after too many invalid attempts")
			return nil, BadRequest(MsgOTPAttemptsExceeded)
		}
		return nil, BadRequest(MsgOTPInvalid)
	}

	user, err = s.store.MarkVerified(ctx, user.ID)
	if err != nil {
		return nil, s.mapUserError(err)
	}
	s.log.WithField("user_id", user.ID).Info("Email verified")
	return user, nil
}

// ResendOTP replaces the caller's pending code with a fresh one and mails it
func (s *Service) ResendOTP(ctx context.Context, caller *models.User) error {
	user, err := s.store.FindUserByID(ctx, caller.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return NotFound(MsgUserNotFound)
	}
	if err != nil {
		return err
	}
	if user.Verified {
		return BadRequest(MsgAlreadyVerified)
	}

	code, expiresAt := s.newOTP()
	if err := s.store.SetOTP(ctx, user.ID, code, expiresAt); err != nil {
		return s.mapUserError(err)
	}
	user.OTP, user.OTPExpiresAt = code, &expiresAt
	s.sendOTP(user)

	s.log.WithField("user_id", user.ID).Info("OTP reissued")
	return nil
}

func (s *Service) mapUserError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return NotFound(MsgUserNotFound)
	case errors.Is(err, repository.ErrDuplicate):
		return BadRequest(MsgUsernameTaken)
	}
	return fmt.Errorf("failed to update user: %w", err)
}

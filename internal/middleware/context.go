package middleware

import (
	"context"

	"github.com/Dan9191/adboard/internal/auth"
	"github.com/Dan9191/adboard/internal/models"
	"github.com/sirupsen/logrus"
)

type ctxKey int

const (
	ctxKeyUser ctxKey = iota
	ctxKeyClaims
	ctxKeyLogger
	ctxKeyRequestID
)

// WithUser attaches the authenticated user and token claims to ctx
func WithUser(ctx context.Context, user *models.User, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUser, user)
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(*models.User)
	return user, ok && user != nil
}

// ClaimsFromContext returns the claims of the presented token, if any
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims).(*auth.Claims)
	return claims, ok && claims != nil
}

// WithLogger attaches a request scoped log entry to ctx
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, entry)
}

// Logger returns the request scoped log entry, or one on the standard logger
func Logger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(ctxKeyLogger).(*logrus.Entry); ok && entry != nil {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// RequestID returns the id assigned to the current request
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

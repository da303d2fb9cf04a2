package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/Dan9191/adboard/internal/config"
	"github.com/Dan9191/adboard/internal/middleware"
	"github.com/Dan9191/adboard/internal/models"
	"github.com/Dan9191/adboard/internal/service"
	"github.com/sirupsen/logrus"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling files to disk.
const multipartMemory = 8 << 20

// multipartOverhead allows for form fields and part headers on top of the file
const multipartOverhead = 1 << 20

// maxBodySize bounds JSON and urlencoded bodies
const maxBodySize = 1 << 20

type Handler struct {
	svc *service.Service
	cfg *config.Config
	log *logrus.Logger
}

func NewHandler(svc *service.Service, cfg *config.Config, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, cfg: cfg, log: log}
}

// fail is the single error boundary: service errors keep their status and
// message, everything else becomes a logged 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		middleware.WriteError(w, svcErr.Status, svcErr.Message)
		return
	}
	middleware.Logger(r.Context()).WithError(err).Error("Request failed")
	middleware.WriteError(w, http.StatusInternalServerError, service.MsgServerError)
}

// caller returns the authenticated user; routes using it sit behind the auth gate
func caller(r *http.Request) *models.User {
	user, _ := middleware.UserFromContext(r.Context())
	return user
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// decodeBody fills dst from a JSON body, or from form values when the
// request is not JSON.
func decodeBody(w http.ResponseWriter, r *http.Request, dst *credentials) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return service.BadRequest(service.MsgInvalidBody)
		}
		return nil
	}
	dst.Username = r.FormValue("username")
	dst.Email = r.FormValue("email")
	dst.Password = r.FormValue("password")
	dst.OTP = r.FormValue("otp")
	return nil
}

// parseMultipart reads a multipart body bounded by the upload limit. A body
// that is not multipart is left to the plain form parser.
func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize+multipartOverhead)
	err := r.ParseMultipartForm(multipartMemory)

	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, http.ErrNotMultipart):
		return nil
	case errors.As(err, &tooLarge):
		return &service.Error{Status: http.StatusRequestEntityTooLarge, Message: service.MsgFileTooLarge}
	}
	return service.BadRequest(service.MsgInvalidBody)
}

// formUpload opens the first file sent under field, or returns nil when
// none was sent. The returned func closes the file.
func (h *Handler) formUpload(r *http.Request, field string) (*service.Upload, func(), error) {
	noop := func() {}
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, noop, nil
	}
	fh := r.MultipartForm.File[field][0]
	if fh.Size > h.cfg.MaxUploadSize {
		return nil, noop, &service.Error{Status: http.StatusRequestEntityTooLarge, Message: service.MsgFileTooLarge}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &service.Upload{Filename: fh.Filename, Body: f}, func() { _ = f.Close() }, nil
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// formList collects a repeated form field, accepting both name and name[]
func formList(r *http.Request, name string) ([]string, bool) {
	values, ok := r.PostForm[name]
	bracketed, okBracketed := r.PostForm[name+"[]"]
	if !ok && !okBracketed {
		return nil, false
	}
	return append(append([]string{}, values...), bracketed...), true
}

func formValue(r *http.Request, name string) (string, bool) {
	values, ok := r.PostForm[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// setTokenCookie mirrors the bearer token into the cookie the auth gate
// falls back to.
func (h *Handler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cfg.JWTExpire),
		HttpOnly: true,
		Secure:   h.cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
}

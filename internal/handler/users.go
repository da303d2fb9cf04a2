package handler

import (
	"net/http"

	"github.com/Dan9191/adboard/internal/middleware"
	"github.com/Dan9191/adboard/internal/service"
	"github.com/gorilla/mux"
)

// Register handles user registration
//
//	@Summary		Register a user
//	@Description	Creates an account, mails a one-time verification code and returns a bearer token.
//	@Tags			Auth
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			body	body		credentials	true	"username, email, password"
//	@Success		201		{object}	authResponse
//	@Failure		400		{object}	messageResponse
//	@Router			/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	user, token, err := h.svc.Register(r.Context(), in.Username, in.Email, in.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.setTokenCookie(w, token)
	middleware.WriteJSON(w, http.StatusCreated, authResponse{Success: true, Data: user, Token: token})
}

// Login handles user authentication
//
//	@Summary	Log in
//	@Tags		Auth
//	@Accept		json,x-www-form-urlencoded
//	@Produce	json
//	@Param		body	body		credentials	true	"username, password"
//	@Success	200		{object}	authResponse
//	@Failure	400		{object}	messageResponse
//	@Failure	401		{object}	messageResponse
//	@Router		/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	user, token, err := h.svc.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.setTokenCookie(w, token)
	middleware.WriteJSON(w, http.StatusOK, authResponse{Success: true, Data: user, Token: token})
}

// Logout revokes the presented token and clears the cookie
//
//	@Summary	Log out
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	messageResponse
//	@Failure	401	{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), claims); err != nil {
		h.fail(w, r, err)
		return
	}

	h.clearTokenCookie(w)
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Success: true, Message: service.MsgLogoutSuccessful})
}

// ListUsers returns every user; admin only
//
//	@Summary	List users
//	@Tags		Users
//	@Produce	json
//	@Success	200	{object}	listResponse[models.User]
//	@Failure	401	{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/auth/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(users))
}

// Me returns the caller's own record
//
//	@Summary	Current user
//	@Tags		Users
//	@Produce	json
//	@Success	200	{object}	dataResponse[models.User]
//	@Failure	401	{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, data(user))
}

// UpdateUsername godoc
//
//	@Summary	Change username
//	@Tags		Users
//	@Accept		json,x-www-form-urlencoded
//	@Produce	json
//	@Param		id		path		string		true	"User ID"
//	@Param		body	body		credentials	true	"username"
//	@Success	200		{object}	dataResponse[models.User]
//	@Failure	400		{object}	messageResponse
//	@Failure	403		{object}	messageResponse
//	@Failure	404		{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/auth/username/{id} [patch]
func (h *Handler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.svc.UpdateUsername(r.Context(), caller(r), mux.Vars(r)["id"], in.Username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, data(user))
}

// UpdatePassword godoc
//
//	@Summary	Change password
//	@Tags		Users
//	@Accept		json,x-www-form-urlencoded
//	@Produce	json
//	@Param		id		path		string		true	"User ID"
//	@Param		body	body		credentials	true	"password"
//	@Success	200		{object}	dataResponse[models.User]
//	@Failure	400		{object}	messageResponse
//	@Failure	403		{object}	messageResponse
//	@Failure	404		{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/auth/password/{id} [patch]
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.svc.UpdatePassword(r.Context(), caller(r), mux.Vars(r)["id"], in.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, data(user))
}

// UpdateAvatar godoc
//
//	@Summary	Upload avatar
//	@Tags		Users
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		id		path		string	true	"User ID"
//	@Param		avatar	formData	file	true	"Avatar image"
//	@Success	200		{object}	dataResponse[models.User]
//	@Failure	400		{object}	messageResponse
//	@Failure	404		{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/auth/create/avatar/{id} [patch]
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	defer cleanupMultipart(r)

	upload, closeFile, err := h.formUpload(r, "avatar")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeFile()

	user, err := h.svc.UpdateAvatar(r.Context(), caller(r), mux.Vars(r)["id"], upload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, data(user))
}

// DeleteAvatar godoc
//
//	@Summary	Remove avatar
//	@Tags		Users
//	@Produce	json
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	dataResponse[models.User]
//	@Failure	400	{object}	messageResponse
//	@Failure	404	{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/auth/delete/avatar/{id} [delete]
func (h *Handler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.DeleteAvatar(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, data(user))
}

// VerifyOTP confirms the caller's email with the mailed code
//
//	@Summary	Verify email
//	@Tags		Auth
//	@Accept		json,x-www-form-urlencoded
//	@Produce	json
//	@Param		body	body		credentials	true	"otp"
//	@Success	200		{object}	dataResponse[models.User]
//	@Failure	400		{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/auth/verify [post]
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.svc.VerifyOTP(r.Context(), caller(r), in.OTP)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, data(user))
}

// ResendOTP mails the caller a fresh verification code
//
//	@Summary	Resend verification code
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	messageResponse
//	@Failure	400	{object}	messageResponse
//	@Failure	429	{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/auth/verify/resend [post]
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResendOTP(r.Context(), caller(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Success: true, Message: service.MsgOTPSent})
}

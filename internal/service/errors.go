package service

import "net/http"

// Error is a failure the caller is told about, carrying the HTTP status it
// maps to. Anything else returned by the service is an internal failure.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func BadRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Message: msg}
}

const (
	MsgAllFields           = "Please enter all fields"
	MsgUsernameTaken       = "Username already exists"
	MsgEmailTaken          = "Email already exists"
	MsgInvalidEmail        = "Please enter a valid email"
	MsgPasswordTooShort    = "Password must be at least 6 characters"
	MsgInvalidCreds        = "Invalid credentials"
	MsgNotAuthorized       = "Not authorized to access this route"
	MsgNotAdmin            = "Is not admin"
	MsgUserNotFound        = "User not found"
	MsgForbiddenUser       = "Not authorized to modify this user"
	MsgNewUsername         = "Please enter the new username"
	MsgNewPassword         = "Please enter the new password"
	MsgAvatarRequired      = "Please upload an avatar image"
	MsgNoAvatar            = "User has no avatar"
	MsgUnsupportedImage    = "Only jpg, jpeg, png, gif and webp images are allowed"
	MsgOTPRequired         = "Please enter the OTP"
	MsgOTPInvalid          = "Invalid OTP"
	MsgOTPExpired          = "OTP has expired"
	MsgAlreadyVerified     = "Account is already verified"
	MsgOTPAttemptsExceeded = "Too many invalid attempts, request a new OTP"
	MsgOTPSent             = "A new OTP has been sent"
	MsgAdsNotFound         = "Ads not found"
	MsgNoOwnAds            = "You have not created any ads"
	MsgImageRequired       = "Please upload an image"
	MsgEmptyField          = "Fields cannot be empty"
	MsgForbiddenAd         = "Not authorized to modify this ad"
	MsgAdsUpdated          = "Ads updated successfully"
	MsgAdsDeleted          = "Ads deleted successfully"
	MsgLogoutSuccessful    = "Logout successful"
	MsgServerError         = "Server Error"
	MsgTooManyRequests     = "Too many requests"
	MsgRouteNotFound       = "Route not found"
	MsgInvalidBody         = "Invalid request body"
	MsgFileTooLarge        = "File is too large"
)

package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// emailPattern is the shape every stored email address has been checked against
var emailPattern = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)

type registerInput struct {
	Username string `validate:"required"`
	Email    string `validate:"required,emailshape"`
	Password string `validate:"required,min=6"`
}

type passwordInput struct {
	Password string `validate:"required,min=6"`
}

type adInput struct {
	Title       string   `validate:"required"`
	Description string   `validate:"required"`
	Location    []string `validate:"required,min=1,dive,required"`
	Category    []string `validate:"required,min=1,dive,required"`
	Price       string   `validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// validationMessage turns the first failed rule into a client message
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return MsgAllFields
	}
	fe := verrs[0]
	switch {
	case fe.Tag() == "required":
		return MsgAllFields
	case fe.Field() == "Email":
		return MsgInvalidEmail
	case fe.Field() == "Password" && fe.Tag() == "min":
		return MsgPasswordTooShort
	}
	return MsgAllFields
}

// cleanList trims entries and drops blanks
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

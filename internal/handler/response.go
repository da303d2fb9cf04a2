package handler

import "github.com/Dan9191/adboard/internal/models"

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type dataResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type listResponse[T any] struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    []T  `json:"data"`
}

type authResponse struct {
	Success bool         `json:"success"`
	Data    *models.User `json:"data"`
	Token   string       `json:"token"`
}

type adUpdateResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    *models.Ad `json:"data"`
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func list[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Success: true, Count: len(items), Data: items}
}

func data[T any](v T) dataResponse[T] {
	return dataResponse[T]{Success: true, Data: v}
}

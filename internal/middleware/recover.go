package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/Dan9191/adboard/internal/service"
)

// Recoverer turns a panicking handler into a 500 response
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				Logger(r.Context()).
					WithField("panic", rec).
					WithField("stack", string(debug.Stack())).
					Error("Recovered from panic")
				WriteError(w, http.StatusInternalServerError, service.MsgServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"axie-market-cache/pkg/apierror"
	"axie-market-cache/pkg/response"
)

// Recovery is a middleware that recovers from panics.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[Recovery] PANIC %s %s (request %s): %v\n%s",
					r.Method, r.URL.Path, GetRequestID(r.Context()), err, debug.Stack())
				response.Error(w, apierror.InternalError("internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

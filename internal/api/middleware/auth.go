// Package middleware holds HTTP middleware specific to the API.
package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/newthinker/sextant/internal/api/response"
	"github.com/newthinker/sextant/internal/core"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth returns middleware that requires apiKey in the X-API-Key header
// or as an "Authorization: Bearer" token. An empty apiKey disables
// authentication.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	want := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := providedKey(r)
			if provided == "" {
				response.Fail(w, core.WrapError(core.ErrUnauthorized, errors.New("missing "+APIKeyHeader)))
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), want) != 1 {
				response.Fail(w, core.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func providedKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

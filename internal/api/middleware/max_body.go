package middleware

import (
	"net/http"

	"github.com/cloo-solutions/docinsight/internal/api"
)

const (
	// DefaultMaxBodyBytes bounds the small JSON bodies of the document and
	// insight endpoints.
	DefaultMaxBodyBytes int64 = 1 << 20
	// DefaultChunkMaxBodyBytes bounds /chunk, which carries raw page text.
	DefaultChunkMaxBodyBytes int64 = 10 << 20
)

// MaxBodyBytes rejects bodies whose declared length exceeds limit and caps
// reads of the rest, so DecodeJSON fails with *http.MaxBytesError once the
// limit is crossed. A non-positive limit disables the check.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// Package requesttime pins a single "now" per request so audit timestamps,
// sequence periods and domain timestamps within one request always agree.
package requesttime

import (
	"net/http"
	"time"

	"clinicore/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

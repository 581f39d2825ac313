package http

import (
	"mime"
	"net/http"

	"github.com/utafrali/identity/pkg/httputil"
)

// contentType rejects requests whose declared Content-Type is not one of
// allowed. Requests without a Content-Type pass through.
func contentType(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ct := r.Header.Get("Content-Type"); ct != "" {
				mediaType, _, err := mime.ParseMediaType(ct)
				if _, ok := set[mediaType]; err != nil || !ok {
					httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
						Error: &httputil.ErrorResponse{
							Code:    "UNSUPPORTED_MEDIA_TYPE",
							Message: "unsupported Content-Type " + ct,
						},
					})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeJSON accepts only JSON request bodies.
var ContentTypeJSON = contentType("application/json")

// ContentTypeForm accepts only URL-encoded form bodies.
var ContentTypeForm = contentType("application/x-www-form-urlencoded")

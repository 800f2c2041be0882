package middleware

import (
	"mime"
	"net/http"

	"github.com/windaep/windaep/internal/api/models"
)

// MaxBodyBytes bounds request bodies. Inline wind fields can be large.
const MaxBodyBytes = 32 << 20

// RequireJSON rejects bodies that are not application/json and caps the
// body size.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if ct := r.Header.Get("Content-Type"); ct != "" {
				if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
					p := models.NewProblem(models.ProblemTypeUnsupportedMedia, "Unsupported media type",
						http.StatusUnsupportedMediaType, GetRequestID(r.Context()))
					p.Detail = "Content-Type must be application/json"
					writeProblem(w, r, p)
					return
				}
			}
			r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

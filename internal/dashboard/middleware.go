package dashboard

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	contextKeySession contextKey = "session"

	// SessionCookie carries the edit-session ID for browser clients.
	SessionCookie = "dues_session"
	// SessionHeader carries the edit-session ID for API clients.
	SessionHeader = "X-Session-ID"
)

// SessionMiddleware attaches an edit-session ID to every request, issuing a
// new one when the client has none.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = c.Value
			}
		}

		// Reject anything that is not an ID we could have issued.
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(SessionHeader, id)

		ctx := context.WithValue(r.Context(), contextKeySession, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionID returns the edit-session ID stored by SessionMiddleware.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeySession).(string)
	return id
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, error, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            error,
		ErrorDescription: description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

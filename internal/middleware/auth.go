package middleware

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"
)

// TokenValidator checks a Google-signed ID token against an audience
type TokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

func googleTokenValidator(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
	return idtoken.Validate(ctx, token, audience)
}

// PushAuth requires a valid OIDC bearer token on event pushes when
// trigger.verify_oidc is enabled. It authenticates the event source only.
func (m *Middleware) PushAuth(next http.Handler) http.Handler {
	if !m.cfg.Trigger.VerifyOIDC {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = strings.TrimSpace(parts[1])
		}

		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		payload, err := m.validateToken(r.Context(), token, m.cfg.Trigger.Audience)
		if err != nil {
			m.log.Debug().Err(err).
				Str("request_id", GetRequestID(r.Context())).
				Msg("push token validation failed")
			writeError(w, http.StatusUnauthorized, "invalid_token", "The push token is invalid or expired")
			return
		}

		m.log.Debug().
			Str("request_id", GetRequestID(r.Context())).
			Str("subject", payload.Subject).
			Msg("push token accepted")

		next.ServeHTTP(w, r)
	})
}

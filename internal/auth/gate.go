package auth

import (
	"net/http"
	"strings"

	"github.com/vovakirdan/roomchat-server/internal/core"
)

// TokenFromRequest extracts a bearer token from the Authorization header,
// falling back to the token query parameter used by browser WebSocket clients.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// Authenticate resolves the identity carried by r. It returns
// core.ErrUnauthenticated when the request has no valid token.
func (s *Service) Authenticate(r *http.Request) (core.Identity, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return core.Identity{}, core.ErrUnauthenticated
	}
	return s.IdentityFromToken(token)
}

// IdentityFromToken validates token and converts its claims to an identity.
func (s *Service) IdentityFromToken(token string) (core.Identity, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return core.Identity{}, core.ErrUnauthenticated
	}
	id := core.Identity{UserID: claims.UserID, Username: claims.Username}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

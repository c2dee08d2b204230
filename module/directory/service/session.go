package service

import (
	"net/http"
	"strings"

	"TeamWork/logger"
	"TeamWork/tools/security"
)

// SessionResolver maps an inbound request to the authenticated user id.
// Two forms are accepted: the dashboard's `session` cookie (opaque token
// stored in the sessions collection) and an `Authorization: Bearer` JWT.
type SessionResolver struct {
	store Store
	jwt   security.Options
}

func NewSessionResolver(store Store, jwtOpts security.Options) *SessionResolver {
	return &SessionResolver{store: store, jwt: jwtOpts}
}

// ResolveUser returns "" when no session can be resolved.
func (r *SessionResolver) ResolveUser(req *http.Request) string {
	if c, err := req.Cookie("session"); err == nil && c.Value != "" {
		sess, err := r.store.FindSession(req.Context(), c.Value)
		if err != nil {
			logger.Warnf("[session] lookup failed: %v", err)
		} else if sess != nil {
			return sess.UserID
		}
	}

	if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token := strings.TrimSpace(authz[len("bearer "):])
			if sub, err := security.Verify(r.jwt, token); err == nil {
				return sub
			}
		}
	}

	return ""
}

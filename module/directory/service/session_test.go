package service

import (
	"net/http/httptest"
	"testing"

	"TeamWork/module/directory/model"
	"TeamWork/tools/security"
)

func TestResolveUserFromSessionCookie(t *testing.T) {
	ms := NewMemStore()
	ms.PutSession(model.Session{Token: "tok-1", UserID: "u1", CreatedAt: 1})
	r := NewSessionResolver(ms, security.DefaultOptions([]byte("test-secret")))

	req := httptest.NewRequest("GET", "/api/chat/unread", nil)
	req.Header.Set("Cookie", "session=tok-1")
	if got := r.ResolveUser(req); got != "u1" {
		t.Fatalf("resolved = %q, want u1", got)
	}

	req = httptest.NewRequest("GET", "/api/chat/unread", nil)
	req.Header.Set("Cookie", "session=unknown")
	if got := r.ResolveUser(req); got != "" {
		t.Fatalf("unknown token resolved to %q", got)
	}
}

func TestResolveUserFromBearerToken(t *testing.T) {
	opts := security.DefaultOptions([]byte("test-secret"))
	r := NewSessionResolver(NewMemStore(), opts)

	token, _, err := security.Generate(opts, "u2")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/sorter/claim", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if got := r.ResolveUser(req); got != "u2" {
		t.Fatalf("resolved = %q, want u2", got)
	}

	// wrong key fails closed
	req.Header.Set("Authorization", "Bearer "+token+"x")
	if got := r.ResolveUser(req); got != "" {
		t.Fatalf("tampered token resolved to %q", got)
	}
}

func TestResolveUserAnonymous(t *testing.T) {
	r := NewSessionResolver(NewMemStore(), security.DefaultOptions([]byte("test-secret")))
	req := httptest.NewRequest("GET", "/api/presence/online", nil)
	if got := r.ResolveUser(req); got != "" {
		t.Fatalf("anonymous resolved to %q", got)
	}
}
